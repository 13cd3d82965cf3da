package converge

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/clusterops/nodectl/pkg/desired"
)

type credentialFile struct {
	Auths map[string]credentialEntry `json:"auths"`
}

type credentialEntry struct {
	Auth string `json:"auth"`
}

// ProvisionCredentials writes the registry login file. It only acts when
// credentials are declared and either no credential file exists yet or the
// replace flag is set; a failure is fatal to the node.
func (e *Engine) ProvisionCredentials(creds *desired.Credentials) error {
	if creds == nil {
		return nil
	}

	if _, err := os.Stat(e.CredentialPath); err == nil && !creds.Replace {
		slog.Debug("keeping existing registry credentials",
			slog.String("node", e.Node), slog.String("path", e.CredentialPath))
		credentialWrites.WithLabelValues("kept").Inc()
		return nil
	}

	auth := base64.StdEncoding.EncodeToString([]byte(creds.Username + ":" + creds.Password))
	content, err := json.MarshalIndent(credentialFile{
		Auths: map[string]credentialEntry{
			creds.Registry: {Auth: auth},
		},
	}, "", "  ")
	if err != nil {
		credentialWrites.WithLabelValues("error").Inc()
		return &CredentialError{Node: e.Node, Err: fmt.Errorf("failed to encode credentials: %w", err)}
	}

	if err := os.MkdirAll(filepath.Dir(e.CredentialPath), 0o700); err != nil {
		credentialWrites.WithLabelValues("error").Inc()
		return &CredentialError{Node: e.Node, Err: err}
	}
	if err := os.WriteFile(e.CredentialPath, content, 0o600); err != nil {
		credentialWrites.WithLabelValues("error").Inc()
		return &CredentialError{Node: e.Node, Err: err}
	}

	slog.Info("provisioned registry credentials",
		slog.String("node", e.Node), slog.String("registry", creds.Registry))
	credentialWrites.WithLabelValues("written").Inc()
	return nil
}
