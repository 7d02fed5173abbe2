package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/asaskevich/EventBus"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/hcl"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/loopioopisnoopi/digital-asset-tokenization/ipfs"
	"github.com/loopioopisnoopi/digital-asset-tokenization/registry"
)

var (
	cfg    *config
	logger *zap.Logger
	ledger registry.Ledger
	svc    *registry.Service
	ipfsc  *ipfs.Client
)

type config struct {
	Port     int    `hcl:"port"`
	DataDir  string `hcl:"datadir"`
	Admin    string `hcl:"admin"`
	LogLevel string `hcl:"loglevel"`

	IPFSEndpoint  string `hcl:"ipfs_endpoint"`
	IPFSGateway   string `hcl:"ipfs_gateway"`
	IPFSAPIKey    string `hcl:"ipfs_api_key"`
	IPFSAPISecret string `hcl:"ipfs_api_secret"`
}

func readConfig(confpath string) *config {
	var cfg config

	dat, err := os.ReadFile(confpath)
	if err != nil {
		panic(fmt.Sprintf("unable to read the configuration: %v", err))
	}

	if err = hcl.Unmarshal(dat, &cfg); nil != err {
		panic(fmt.Sprintf("unable to parse the configuration: %v", err))
	}

	if cfg.IPFSGateway == "" {
		cfg.IPFSGateway = "https://gateway.pinata.cloud"
	}

	return &cfg
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			panic(fmt.Sprintf("invalid loglevel in configuration: %v", err))
		}
		lvl = parsed
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	log, err := zcfg.Build()
	if err != nil {
		panic(fmt.Sprintf("unable to init the logger: %v", err))
	}
	return log
}

// subscribeEventLog mirrors every registry event into the service log, the
// embedded-ledger counterpart of watching contract events on a chain.
func subscribeEventLog(bus EventBus.Bus, log *zap.Logger) {
	bus.Subscribe(registry.EventTopic, func(ev interface{}) {
		switch e := ev.(type) {
		case registry.AssetRegistered:
			log.Info("event AssetRegistered",
				zap.String("asset", e.AssetID.Hex()),
				zap.String("owner", e.Owner.String()),
				zap.String("cid", e.IPFSCid),
				zap.Uint64("token", e.TokenID))
		case registry.AssetVerified:
			log.Info("event AssetVerified",
				zap.String("asset", e.AssetID.Hex()),
				zap.Bool("verified", e.Verified))
		case registry.AssetTransferred:
			log.Info("event AssetTransferred",
				zap.String("asset", e.AssetID.Hex()),
				zap.String("from", e.From.String()),
				zap.String("to", e.To.String()),
				zap.Uint64("token", e.TokenID))
		}
	})
}

func setup(cfg *config) error {
	admin, err := registry.ParseAddress(cfg.Admin)
	if err != nil {
		return fmt.Errorf("invalid admin address in configuration: %v", err)
	}

	ledger, err = registry.OpenBolt(fmt.Sprintf("%s/tokenized.db", cfg.DataDir))
	if err != nil {
		return err
	}

	bus := EventBus.New()
	subscribeEventLog(bus, logger)

	svc = registry.NewService(ledger, admin, bus, logger)
	ipfsc = ipfs.New(ipfs.Config{
		Endpoint:  cfg.IPFSEndpoint,
		Gateway:   cfg.IPFSGateway,
		APIKey:    cfg.IPFSAPIKey,
		APISecret: cfg.IPFSAPISecret,
	}, logger)

	logger.Info("registry ready", zap.String("admin", admin.String()))
	return nil
}

func newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(logger))

	r.POST("/ipfs/upload", handleUpload())
	r.POST("/asset/register", handleRegister())
	r.POST("/asset/verify", handleVerify())
	r.POST("/asset/transfer", handleTransfer())
	r.GET("/asset/get", handleGet())
	r.GET("/asset/content", handleContent())
	r.GET("/admin", handleAdmin())
	r.GET("/healthz", handleHealth())

	return r
}

func main() {
	var confpath string
	flag.StringVar(&confpath, "conf", "", "Specify configuration file")
	flag.Parse()

	cfg = readConfig(confpath)
	logger = newLogger(cfg.LogLevel)

	if err := setup(cfg); err != nil {
		panic(fmt.Sprintf("unable to init the registry: %v", err))
	}
	defer logger.Sync()
	defer ledger.Close()

	newRouter().Run(fmt.Sprintf(":%d", cfg.Port))
}
