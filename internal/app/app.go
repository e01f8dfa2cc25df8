// Package app wires configuration into the services shared by the Lambda and
// the local server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"palm-reader/handler"
	"palm-reader/internal/config"
	"palm-reader/internal/fallback"
	"palm-reader/internal/integrations/gemini"
	"palm-reader/internal/integrations/openai"
	"palm-reader/internal/integrations/paramstore"
	"palm-reader/internal/repository"
	"palm-reader/internal/telemetry"
	"palm-reader/internal/usecase"
)

var loadAWSConfig = func(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}

type App struct {
	Handler *handler.Handler
	Reading *usecase.ReadingService
	Chat    *usecase.ChatService
	History *usecase.HistoryService
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var awsCfg *aws.Config
	if cfg.ParamPrefix != "" || cfg.HistoryTable != "" {
		loaded, err := loadAWSConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: load AWS config: %w", err)
		}
		awsCfg = &loaded
	}

	// ---- Credentials ----
	var getter paramstore.Getter
	if awsCfg != nil && cfg.ParamPrefix != "" {
		ps, err := paramstore.New(awsssm.NewFromConfig(*awsCfg))
		if err != nil {
			return nil, fmt.Errorf("app: create paramstore client: %w", err)
		}
		getter = ps
	}
	keys, err := paramstore.NewKeySource(cfg.APIKey, getter, cfg.ParamPrefix)
	if err != nil {
		return nil, fmt.Errorf("app: create key source: %w", err)
	}

	// ---- Model ----
	vision, err := newVisionModel(cfg, keys)
	if err != nil {
		return nil, err
	}
	recorder, err := telemetry.NewGlobal()
	if err != nil {
		return nil, fmt.Errorf("app: create telemetry recorder: %w", err)
	}
	modelClient, err := usecase.NewModelClient(vision, cfg.RetryBaseDelay, recorder)
	if err != nil {
		return nil, fmt.Errorf("app: create model client: %w", err)
	}

	// ---- Fallback content ----
	bank, err := fallback.DefaultBank()
	if err != nil {
		return nil, fmt.Errorf("app: load content bank: %w", err)
	}
	synth, err := fallback.NewReadingSynthesizer(bank, nil)
	if err != nil {
		return nil, fmt.Errorf("app: create reading synthesizer: %w", err)
	}
	responder, err := fallback.NewChatResponder(bank)
	if err != nil {
		return nil, fmt.Errorf("app: create chat responder: %w", err)
	}

	// ---- History ----
	var store usecase.HistoryStore
	if awsCfg != nil && cfg.HistoryTable != "" {
		store, err = repository.New(awsdynamodb.NewFromConfig(*awsCfg), cfg.HistoryTable)
		if err != nil {
			return nil, fmt.Errorf("app: create history store: %w", err)
		}
	} else {
		slog.Info("HISTORY_TABLE not set, keeping reading history in memory")
		store = repository.NewMemory()
	}

	// ---- Services ----
	readingSvc, err := usecase.NewReadingService(keys, modelClient, synth, recorder, cfg.MaxAttempts, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("app: create reading service: %w", err)
	}
	chatSvc, err := usecase.NewChatService(keys, modelClient, responder, recorder, cfg.MaxAttempts, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("app: create chat service: %w", err)
	}
	historySvc, err := usecase.NewHistoryService(store)
	if err != nil {
		return nil, fmt.Errorf("app: create history service: %w", err)
	}

	h, err := handler.NewHandler(readingSvc, chatSvc, historySvc, handler.WithAllowedOrigin(cfg.AllowedOrigin))
	if err != nil {
		return nil, fmt.Errorf("app: create handler: %w", err)
	}

	return &App{Handler: h, Reading: readingSvc, Chat: chatSvc, History: historySvc}, nil
}

func newVisionModel(cfg config.Config, keys *paramstore.KeySource) (usecase.VisionModel, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		c, err := openai.NewClient(keys, cfg.Model, openai.WithBaseURL(cfg.OpenAIBaseURL))
		if err != nil {
			return nil, fmt.Errorf("app: create openai client: %w", err)
		}
		return c, nil
	default:
		c, err := gemini.NewClient(keys, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("app: create gemini client: %w", err)
		}
		return c, nil
	}
}
