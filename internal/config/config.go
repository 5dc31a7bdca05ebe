package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const DefaultPath = "./config/application.yaml"

const envPrefix = "BILLS_"

type Application struct {
	Host   string `koanf:"host"`
	Listen string `koanf:"listen"`
	Store  Store  `koanf:"store"`
	YNAB   YNAB   `koanf:"ynab"`
	Demo   Demo   `koanf:"demo"`
}

// Store points at the local SQLite file holding the mirrored budgets.
type Store struct {
	Path string `koanf:"path"`
}

type YNAB struct {
	BaseURL string `koanf:"baseurl"`
	// AccessToken seeds the session on startup. Usually left empty and provided by the UI after login.
	AccessToken string        `koanf:"accesstoken"`
	Timeout     time.Duration `koanf:"timeout"`
}

// Demo disables all network I/O towards YNAB; remote calls return synthesized results.
type Demo struct {
	Enabled bool `koanf:"enabled"`
}

func Defaults() Application {
	return Application{
		Host:   "http://localhost:5173",
		Listen: ":8282",
		Store: Store{
			Path: "./data/BillsForYnabDB.sqlite",
		},
		YNAB: YNAB{
			BaseURL: "https://api.ynab.com/v1",
			Timeout: 30 * time.Second,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	if err := loadDotEnv(k, filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return Application{}, err
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix:        envPrefix,
		TransformFunc: envKey,
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}

// loadDotEnv applies BILLS_ variables from a .env file next to the config file. Real environment
// variables are loaded afterwards and win.
func loadDotEnv(k *koanf.Koanf, path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		log.Errorf("error loading config from %s: %v", path, err)
		return err
	}

	for name, value := range vars {
		if !strings.HasPrefix(name, envPrefix) {
			continue
		}
		key, v := envKey(name, value)
		if err := k.Set(key, v); err != nil {
			return err
		}
	}
	log.Infof("Loaded environment from file: %s", path)
	return nil
}

func envKey(k, v string) (string, any) {
	k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
	return k, v
}
