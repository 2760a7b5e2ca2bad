package app

import (
	"errors"
	"log/slog"

	"github.com/jobassist/jobassist/internal/api/service"
	"github.com/jobassist/jobassist/internal/clients/cvai"
	"github.com/jobassist/jobassist/internal/clients/google"
	"github.com/jobassist/jobassist/internal/clients/mailer"
)

// initNotifier returns an SMTP mailer when SMTP_HOST is set and a logging
// stand-in otherwise.
func initNotifier(cfg Config, logger *slog.Logger) (service.Notifier, error) {
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP_HOST not set, emails will be logged instead of sent")
		return mailer.Log{Logger: logger}, nil
	}

	m, err := mailer.NewSMTP(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("smtp mailer configured", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
	return m, nil
}

// initIdentityProvider returns nil when Google credentials are absent;
// the google endpoints then answer 503.
func initIdentityProvider(cfg Config, logger *slog.Logger) (service.IdentityProvider, error) {
	c, err := google.New(google.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
	})
	if errors.Is(err, google.ErrNotConfigured) {
		logger.Info("google login disabled: GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// llmConfig prefers DeepSeek when its key is set, then OpenAI. LLM_BASE_URL
// and LLM_MODEL override either.
func llmConfig(cfg Config) cvai.ClientConfig {
	cc := cvai.ClientConfig{Timeout: cfg.LLMTimeout}
	switch {
	case cfg.DeepSeekAPIKey != "":
		cc.APIKey = cfg.DeepSeekAPIKey
		cc.BaseURL = cvai.DeepSeekBaseURL
		cc.Model = cvai.DeepSeekModel
	case cfg.OpenAIAPIKey != "":
		cc.APIKey = cfg.OpenAIAPIKey
		cc.Model = cvai.OpenAIModel
	}
	if cfg.LLMBaseURL != "" {
		cc.BaseURL = cfg.LLMBaseURL
	}
	if cfg.LLMModel != "" {
		cc.Model = cfg.LLMModel
	}
	return cc
}

// initCVAI builds the extractor and enricher. Without an API key the
// enricher is nil and uploads answer 503; manual CVs keep working.
func initCVAI(cfg Config, logger *slog.Logger) (service.TextExtractor, service.Enricher) {
	cc := llmConfig(cfg)
	extractor := cvai.NewExtractor(visionConfig(cfg, cc))

	enricher, err := cvai.NewEnricher(cc)
	if err != nil {
		logger.Warn("cv enrichment disabled: no OPENAI_API_KEY or DEEPSEEK_API_KEY")
		return extractor, nil
	}
	logger.Info("cv enrichment configured", "model", cc.Model)
	return extractor, enricher
}

// visionConfig picks the model for image transcription. DeepSeek has no
// vision model, so images go to OpenAI whenever an OpenAI key exists.
func visionConfig(cfg Config, cc cvai.ClientConfig) cvai.ClientConfig {
	if cfg.OpenAIAPIKey == "" || cc.APIKey == cfg.OpenAIAPIKey {
		return cc
	}
	return cvai.ClientConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cvai.OpenAIModel,
		Timeout: cfg.LLMTimeout,
	}
}
