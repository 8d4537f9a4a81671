package models

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// LinkReference marks where a library address must be spliced into bytecode
type LinkReference struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// Artifact is a compiled contract as read from the build output
type Artifact struct {
	Name     string
	Path     string
	ABI      abi.ABI
	Bytecode string // hex, may contain library placeholders
	// source file -> library name -> positions
	LinkReferences map[string]map[string][]LinkReference
}
