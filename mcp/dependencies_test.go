package mcp

import (
	"github.com/ludo-technologies/finscn/domain"
)

func NewTestDependencies(fr domain.MethodFileReader, path string) *Dependencies {
	return &Dependencies{
		fileReader: fr,
		configPath: path,
	}
}
