package keystore

import (
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"golang.org/x/term"
)

const (
	EnvPassword = "KEYSTORE_PASSWORD"
)

var (
	pswLock  sync.Mutex
	pswCache = make(map[string][]byte)

	stdinFd = func() int { return int(os.Stdin.Fd()) }
)

// KeypairFromEth decrypts a geth keystore file. The password comes from the
// cache, then KEYSTORE_PASSWORD, then the terminal.
func KeypairFromEth(path string) (*keystore.Key, error) {
	// Make sure key exists before prompting password
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("key file not found: %s", path)
	}

	pswLock.Lock()
	defer pswLock.Unlock()
	var pswd = pswCache[path]
	if len(pswd) == 0 {
		if env := os.Getenv(EnvPassword); env != "" {
			pswd = []byte(env)
		} else {
			var err error
			if pswd, err = GetPassword(path); err != nil {
				return nil, err
			}
		}
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyFile failed, err:%s", err)
	}
	ret, err := keystore.DecryptKey(file, string(pswd))
	if err != nil {
		return nil, fmt.Errorf("DecryptKey failed, err:%s", err)
	}
	pswCache[path] = pswd

	return ret, nil
}

// GetPassword reads the password of the key at path from the terminal. It
// fails instead of blocking when stdin is not a terminal.
func GetPassword(path string) ([]byte, error) {
	fd := stdinFd()
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("no password for key %s: stdin is not a terminal, set %s", path, EnvPassword)
	}
	fmt.Printf("Enter password for key %s:\n> ", path)
	pswd, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("read password for key %s: %w", path, err)
	}
	return pswd, nil
}
