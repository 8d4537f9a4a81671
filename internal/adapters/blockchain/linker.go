package blockchain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/models"
)

const placeholderWidth = 40

// LinkBytecode splices library addresses into the artifact's creation code.
// Link references are used when the artifact carries them, otherwise legacy
// "__Name____" placeholders are replaced.
func LinkBytecode(artifact *models.Artifact, libraries map[string]common.Address) ([]byte, error) {
	code := strings.TrimPrefix(artifact.Bytecode, "0x")
	if code == "" {
		return nil, fmt.Errorf("artifact %s has no bytecode (abstract contract or interface?)", artifact.Name)
	}

	if len(artifact.LinkReferences) > 0 {
		var err error
		code, err = linkReferences(code, artifact.LinkReferences, libraries)
		if err != nil {
			return nil, fmt.Errorf("link %s: %w", artifact.Name, err)
		}
	} else {
		for name, addr := range libraries {
			code = strings.ReplaceAll(code, legacyPlaceholder(name), addressHex(addr))
		}
	}

	if idx := strings.Index(code, "__"); idx >= 0 {
		end := min(idx+placeholderWidth, len(code))
		return nil, fmt.Errorf("link %s: unresolved library placeholder %q", artifact.Name, code[idx:end])
	}

	out, err := hexutil.Decode("0x" + code)
	if err != nil {
		return nil, fmt.Errorf("decode bytecode of %s: %w", artifact.Name, err)
	}
	return out, nil
}

func linkReferences(code string, refs map[string]map[string][]models.LinkReference, libraries map[string]common.Address) (string, error) {
	buf := []byte(code)

	files := make([]string, 0, len(refs))
	for file := range refs {
		files = append(files, file)
	}
	sort.Strings(files)

	for _, file := range files {
		for name, positions := range refs[file] {
			addr, ok := libraries[name]
			if !ok {
				return "", fmt.Errorf("missing address for library %s (%s)", name, file)
			}
			replacement := addressHex(addr)
			for _, pos := range positions {
				if pos.Length != common.AddressLength {
					return "", fmt.Errorf("library %s: unexpected link length %d", name, pos.Length)
				}
				start, end := pos.Start*2, (pos.Start+pos.Length)*2
				if start < 0 || end > len(buf) {
					return "", fmt.Errorf("library %s: link reference out of range", name)
				}
				copy(buf[start:end], replacement)
			}
		}
	}
	return string(buf), nil
}

// legacyPlaceholder renders the pre-0.5 solc placeholder for a library name
func legacyPlaceholder(name string) string {
	p := "__" + name
	if len(p) > placeholderWidth {
		p = p[:placeholderWidth]
	}
	return p + strings.Repeat("_", placeholderWidth-len(p))
}

func addressHex(addr common.Address) string {
	return strings.TrimPrefix(strings.ToLower(addr.Hex()), "0x")
}
