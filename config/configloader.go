package config

import (
	"fmt"
	"strings"

	"github.com/remiges-tech/rigel"
	"github.com/remiges-tech/rigel/etcd"
)

func LoadConfigFromFile(filePath string, appConfig any) error {
	configSource, err := newFile(filePath)
	if err != nil {
		return fmt.Errorf("Failed to create File config source: %v", err)
	}

	err = Load(configSource, appConfig)
	if err != nil {
		return fmt.Errorf("Error loading config: %v", err)
	}

	return nil
}

func LoadConfigFromRigel(etcdEndpoints, configName, schemaName string, schemaVersion int, appConfig any) error {
	etcdStorage, err := etcd.NewEtcdStorage(strings.Split(etcdEndpoints, ","))
	if err != nil {
		return fmt.Errorf("failed to create EtcdStorage: %w", err)
	}

	rigelClient := rigel.NewWithStorage(etcdStorage)

	configSource := &Rigel{
		Client:        rigelClient,
		SchemaName:    schemaName,
		SchemaVersion: schemaVersion,
		ConfigName:    configName,
	}

	if err := Load(configSource, appConfig); err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	return nil
}
