package cli

import (
	"fmt"
	"os"

	"github.com/felixgeelhaar/scout/internal/config"
	"github.com/felixgeelhaar/scout/internal/credential"
	"github.com/felixgeelhaar/scout/internal/store"
)

func getStore() store.Storage {
	settings := config.Load()
	if err := settings.Bootstrap(); err != nil {
		fmt.Printf("Failed to prepare data directory: %v\n", err)
		os.Exit(1)
	}
	storeLayer, err := store.NewSQLiteStore(settings.DatabasePath, settings.ReportDir)
	if err != nil {
		fmt.Printf("Failed to init store: %v\n", err)
		os.Exit(1)
	}
	return storeLayer
}

// configValue reads a config key, transparently decrypting stored secrets.
func configValue(s store.Storage, key string) string {
	val, err := s.GetConfig(key)
	if err != nil || val == "" {
		return ""
	}
	if credential.IsEncrypted(val) {
		mgr, err := credential.NewManager()
		if err != nil {
			return ""
		}
		plain, err := mgr.Decrypt(val)
		if err != nil {
			return ""
		}
		return plain
	}
	return val
}
