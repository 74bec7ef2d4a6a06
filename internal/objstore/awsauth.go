package objstore

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AWSAuth mirrors the auth/aws.yaml layout shared with the research tooling.
type AWSAuth struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

func LoadAWSAuth(path string) (AWSAuth, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AWSAuth{}, fmt.Errorf("reading aws auth file: %w", err)
	}
	var auth AWSAuth
	if err := yaml.Unmarshal(data, &auth); err != nil {
		return AWSAuth{}, fmt.Errorf("parsing aws auth file: %w", err)
	}
	auth.Region = strings.TrimSpace(auth.Region)
	auth.AccessKeyID = strings.TrimSpace(auth.AccessKeyID)
	auth.SecretAccessKey = strings.TrimSpace(auth.SecretAccessKey)
	if auth.Region == "" {
		auth.Region = "ap-northeast-2"
	}
	if auth.AccessKeyID == "" || auth.SecretAccessKey == "" {
		return AWSAuth{}, fmt.Errorf("aws auth file %s is missing credentials", path)
	}
	return auth, nil
}
