package di

import (
	"fmt"
	"net/http"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"github.com/muratoffalex/omnibot/internal/ai"
	"github.com/muratoffalex/omnibot/internal/ai/tools"
	"github.com/muratoffalex/omnibot/internal/config"
	"github.com/muratoffalex/omnibot/internal/database"
	"github.com/muratoffalex/omnibot/internal/fetcher"
	"github.com/muratoffalex/omnibot/internal/imagegen"
	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/markdown"
	"github.com/muratoffalex/omnibot/internal/network"
	"github.com/muratoffalex/omnibot/internal/queue"
	"github.com/muratoffalex/omnibot/internal/service"
	"github.com/muratoffalex/omnibot/internal/service/cancel"
	"github.com/muratoffalex/omnibot/internal/service/youtube"
	"github.com/muratoffalex/omnibot/internal/storage"
	"github.com/muratoffalex/omnibot/internal/telegram"
)

type Container struct {
	BotClient   telegram.Client
	Logger      logger.Logger
	DB          database.Database
	Store       storage.Store
	Cfg         *config.Config
	Queue       *queue.Queue
	AI          *ai.ProviderRegistry
	ChatService *service.ChatService
	History     *service.History
	Dispatcher  *service.Dispatcher
	Formatter   *markdown.Processor
	HttpClient  *http.Client
	Localizer   *service.Localizer
	Fetcher     *fetcher.Manager
	YtService   *youtube.Service
	ImageGen    *imagegen.Client
	Requests    *cancel.Manager
}

func NewContainer(cfg *config.Config) (*Container, error) {
	logCfg := cfg.Log()
	l := logger.NewLogrusLogger(&logCfg)

	aiCfg := cfg.AI()
	if err := aiCfg.ValidateAll(); err != nil {
		return nil, fmt.Errorf("invalid ai config: %w", err)
	}

	db, err := database.NewSQLiteDB(cfg, l)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.Storage(), db, l)
	if err != nil {
		return nil, err
	}

	localizer, err := service.NewLocalizer(cfg.Global().InterfaceLanguage)
	if err != nil {
		return nil, fmt.Errorf("error create localizer: %w", err)
	}

	container := &Container{
		Logger:    l,
		DB:        db,
		Store:     store,
		Cfg:       cfg,
		Queue:     queue.NewQueue(db, l),
		Localizer: localizer,
		Requests:  cancel.NewManager(),
	}

	httpCfg := network.NewDefaultHTTPClientConfig(cfg.HTTP())
	container.HttpClient = network.SetupHTTPClient(httpCfg, l)
	streamingClient := network.SetupHTTPClient(network.NewStreamingHTTPClientConfig(cfg.HTTP()), l)
	fetcherHTTPClient := network.SetupHTTPClient(network.NewHTTPClientConfigForFetcher(cfg.HTTP()), l)

	ytCfg := cfg.Youtube()
	transcripts := fetcher.NewTranscriptFetcher(l, fetcherHTTPClient, ytCfg.TranscriptURL)
	container.YtService = youtube.NewService(l, container.HttpClient, store, transcripts, youtube.Config{
		Proxy:       cfg.HTTP().GetProxy(),
		MaxComments: ytCfg.MaxComments,
		CacheTTL:    ytCfg.TranscriptCacheTTL,
	})

	medicineCfg := cfg.Medicine()
	medicine := fetcher.NewMedicineFetcher(l, fetcherHTTPClient, store, fetcher.MedicineConfig{
		BaseURL:        medicineCfg.BaseURL,
		MaxSubstitutes: medicineCfg.MaxSubstitutes,
		CacheTTL:       medicineCfg.CacheTTL,
	})

	fetcherManager := fetcher.NewManager(l)
	fetcherManager.RegisterFetcher(fetcher.NewYoutubeFetcher(l, fetcherHTTPClient, container.YtService))
	fetcherManager.RegisterFetcher(medicine)
	fetcherManager.RegisterFetcher(transcripts)
	fetcherManager.SetDefaultFetcher(fetcher.NewDefaultFetcher(l, fetcherHTTPClient))
	container.Fetcher = fetcherManager

	toolset := tools.NewTools(container.YtService, medicine, tools.Config{
		VideoPrompt:    ytCfg.DefaultPrompt,
		MedicinePrompt: medicineCfg.DefaultPrompt,
	}, l)

	providerRegistry := ai.NewProviderRegistry(aiCfg, l)
	for _, providerCfg := range aiCfg.Providers {
		providerLog := l.WithField("provider", providerCfg.Name)
		if providerCfg.GetAPIKey() == "" {
			providerLog.Warn("No api key configured, provider disabled")
			continue
		}

		httpClient := container.HttpClient
		if providerCfg.ModelParams.IsStream() {
			httpClient = streamingClient
		}
		provider, err := ai.NewProvider(providerCfg, aiCfg, toolset, httpClient, l)
		if err != nil {
			providerLog.WithError(err).Error("Failed to initialize AI provider")
			continue
		}

		providerRegistry.RegisterProvider(providerCfg.Name, provider)
		providerLog.WithField("type", providerCfg.Type).Info("Initialized AI provider")
	}
	if !providerRegistry.Has(aiCfg.DefaultProvider) {
		l.WithField("provider", aiCfg.DefaultProvider).Warn("Default provider is not available")
	}
	container.AI = providerRegistry

	container.ImageGen = imagegen.NewClient(cfg.ImageGen(), container.HttpClient, l)

	formatCfg := cfg.Format()
	formatter, err := markdown.NewProcessor(markdown.Options{
		Dialect:        formatCfg.Dialect,
		MaxChunkLength: formatCfg.MaxChunkLength,
		DetectLanguage: formatCfg.DetectLanguage,
	}, l)
	if err != nil {
		return nil, err
	}
	container.Formatter = formatter

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram().Token, tgbotapi.APIEndpoint, container.HttpClient)
	if err != nil {
		return nil, fmt.Errorf("bot api client initialization error: %w", err)
	}
	l.WithField("username", api.Self.UserName).Info("Bot API initialized")
	container.BotClient = telegram.NewBotClient(api, container.HttpClient, l)

	container.ChatService = service.NewChatService(store, providerRegistry, l)
	container.History = service.NewHistory(store, aiCfg.HistorySize, aiCfg.HistoryTTL)
	container.Dispatcher = service.NewDispatcher(
		container.BotClient,
		providerRegistry,
		container.ChatService,
		container.History,
		formatter,
		service.NewGuard(cfg.Guard()),
		localizer,
		service.DispatcherConfig{RequestTimeout: aiCfg.RequestTimeout},
		l,
	)

	return container, nil
}
