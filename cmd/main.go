package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"gallery-agent/handler"
	"gallery-agent/internal/integrations/openai"
	"gallery-agent/internal/integrations/paramstore"
	"gallery-agent/internal/integrations/resend"
	"gallery-agent/internal/repository"
	"gallery-agent/internal/usecase"
	"gallery-agent/internal/widget"
)

func main() {
	ctx := context.Background()
	logger := slog.Default()

	// ---- Configuration (read only here) ----
	knowledgeTable := mustEnv("KNOWLEDGE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	widgetURL := mustEnv("WIDGET_URL")
	model := envStr("OPENAI_MODEL", "gpt-4o-mini")
	contextWindow := envInt("CONTEXT_WINDOW", 10)
	detectorMode := usecase.ParseDetectorMode(os.Getenv("LEAD_DETECTOR"))
	leadRecipient := os.Getenv("LEAD_RECIPIENT")
	leadSender := envStr("LEAD_SENDER", "Gallery Concierge <onboarding@resend.dev>")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	secrets, err := paramstore.NewCached(ssmClient)
	if err != nil {
		slog.Error("failed to create parameter cache", "err", err)
		os.Exit(1)
	}

	knowledgeStore, err := repository.New(awsdynamodb.NewFromConfig(cfg), knowledgeTable)
	if err != nil {
		slog.Error("failed to create knowledge store", "err", err)
		os.Exit(1)
	}

	llm, err := openai.NewClient(secrets, paramPrefix)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}

	// A missing recipient disables the notification path; detection still runs.
	var chatNotifier usecase.LeadNotifier
	var handlerNotifier handler.LeadNotifier
	if leadRecipient != "" {
		transport, err := resend.NewClient(secrets, paramPrefix, leadSender, leadRecipient)
		if err != nil {
			slog.Error("failed to create email transport", "err", err)
			os.Exit(1)
		}
		notifier, err := usecase.NewNotifier(transport, logger)
		if err != nil {
			slog.Error("failed to create notifier", "err", err)
			os.Exit(1)
		}
		chatNotifier, handlerNotifier = notifier, notifier
	} else {
		slog.Warn("LEAD_RECIPIENT not set; lead notifications disabled")
	}

	var detector usecase.LeadDetector
	switch detectorMode {
	case usecase.DetectorEvaluator:
		detector = usecase.NewModelAssistedDetector(llm, model, logger)
	case usecase.DetectorSentinel:
		// The verdict rides inside the generated reply; no detector needed.
	default:
		detector = usecase.NewRuleBasedDetector()
	}

	chatService, err := usecase.NewChatService(knowledgeStore, llm, detector, chatNotifier, detectorMode, model, contextWindow, logger)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(
		chatService,
		knowledgeStore,
		handlerNotifier,
		secrets,
		paramPrefix+"/admin-password",
		widget.EmbedScript(widgetURL),
		logger,
	)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
