package hantoo

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Credentials are the broker app key pair, kept in a yaml file outside the
// repo (same layout the rest of the tooling uses).
type Credentials struct {
	AppKey    string `yaml:"my_app"`
	AppSecret string `yaml:"my_sec"`
}

func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("reading hantoo auth file: %w", err)
	}
	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parsing hantoo auth file: %w", err)
	}
	creds.AppKey = strings.TrimSpace(creds.AppKey)
	creds.AppSecret = strings.TrimSpace(creds.AppSecret)
	if creds.AppKey == "" || creds.AppSecret == "" {
		return Credentials{}, fmt.Errorf("hantoo auth file %s is missing my_app/my_sec", path)
	}
	return creds, nil
}
