// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package blockstore

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const PathPostfix = ".notary/blockstore"

// Blockstore persists a single number per chain, relayer and role
type Blockstore struct {
	path     string // Path excluding filename
	fullPath string
	chain    string
	relayer  string
	role     string
}

func NewBlockstore(path string, chain fmt.Stringer, relayer, role string) (*Blockstore, error) {
	fileName := getFileName(chain.String(), relayer, role)
	if path == "" {
		def, err := getDefaultPath()
		if err != nil {
			return nil, err
		}
		path = def
	}

	return &Blockstore{
		path:     path,
		fullPath: filepath.Join(path, fileName),
		chain:    chain.String(),
		relayer:  relayer,
		role:     role,
	}, nil
}

// StoreBlock writes the number to disk, replacing the previous value
func (b *Blockstore) StoreBlock(block *big.Int) error {
	if _, err := os.Stat(b.path); os.IsNotExist(err) {
		if err = os.MkdirAll(b.path, os.ModePerm); err != nil {
			return errors.Wrap(err, "create blockstore dir")
		}
	}

	tmp := b.fullPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(block.String()), 0600); err != nil {
		return errors.Wrap(err, "write blockstore")
	}
	return os.Rename(tmp, b.fullPath)
}

// TryLoadLatestBlock returns zero when nothing was stored yet
func (b *Blockstore) TryLoadLatestBlock() (*big.Int, error) {
	if _, err := os.Stat(b.fullPath); os.IsNotExist(err) {
		return big.NewInt(0), nil
	}

	dat, err := os.ReadFile(b.fullPath)
	if err != nil {
		return nil, errors.Wrap(err, "read blockstore")
	}
	block, ok := new(big.Int).SetString(strings.TrimSpace(string(dat)), 10)
	if !ok {
		return nil, fmt.Errorf("unable to parse blockstore %s: %q", b.fullPath, dat)
	}
	return block, nil
}

func getFileName(chain, relayer, role string) string {
	return fmt.Sprintf("%s-%s-%s.block", relayer, chain, role)
}

func getDefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, PathPostfix), nil
}
