// Package memesecret loads configuration kept in AWS Secrets Manager.
package memesecret

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/savaki/secrets"
)

func LoadSecret(s *session.Session, secretName string, data interface{}) error {
	api := secrets.WithSecretsManager(secretsmanager.New(s))
	manager, err := secrets.NewManager(api)
	if err != nil {
		return fmt.Errorf("failed to initialize secrets: %w", err)
	}

	if err := manager.Decode(secretName, &data); err != nil {
		return fmt.Errorf("failed to load secret %v: %w", secretName, err)
	}
	return nil
}

// Lexicon is the secret holding filename terms kept out of the repository.
type Lexicon struct {
	Terms []string `json:"terms"`
}

func LoadLexicon(s *session.Session, secretName string) ([]string, error) {
	var lexicon Lexicon
	if err := LoadSecret(s, secretName, &lexicon); err != nil {
		return nil, err
	}
	return lexicon.Terms, nil
}
