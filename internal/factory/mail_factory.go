package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/adapters/imap"
	"github.com/mikey/llm-claim-detector/internal/config"
)

// MailFactory creates the mail source
type MailFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailFactory creates a new mail factory
func NewMailFactory(cfg *config.Config, logger *zap.Logger) *MailFactory {
	return &MailFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSource creates an IMAP mail source
func (f *MailFactory) CreateSource() (*imap.Source, error) {
	mailCfg, err := f.cfg.GetMail()
	if err != nil {
		return nil, err
	}
	if mailCfg.Server == "" {
		return nil, fmt.Errorf("mail server is required")
	}
	return imap.NewSource(mailCfg, f.logger), nil
}
