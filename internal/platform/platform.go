package platform

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/go-sql-driver/mysql"

	"github.com/watereef7/loss-control-backend/internal/stores/authstate"
	"github.com/watereef7/loss-control-backend/internal/stores/credentials"
	"github.com/watereef7/loss-control-backend/internal/stores/eventlog"
	"github.com/watereef7/loss-control-backend/pkg/amocrm"
	"github.com/watereef7/loss-control-backend/pkg/report"
	"github.com/watereef7/loss-control-backend/pkg/telegram"
	"github.com/watereef7/loss-control-backend/pkg/utils"
)

// Platform bundles the shared services every API module works against: the
// credential store, the token manager and API client over it, the report
// builder, the OAuth state store, the event journal and the Telegram
// notifier. One platform is built at startup and handed to each module, so
// every module sees the same token manager and refreshes never race across
// modules.
type Platform struct {
	Cfg     *utils.Config
	DataDir string

	Events   *eventlog.Log
	States   authstate.Store
	Tokens   amocrm.TokenStore
	Manager  *amocrm.TokenManager
	Client   *amocrm.Client
	Report   *report.Builder
	Telegram *telegram.Notifier

	closeStore func() error
}

// New builds the platform from environment configuration. Credentials live
// in MySQL when MYSQL_DATABASE is set and in a JSON file under the data
// directory otherwise.
func New(cfg *utils.Config) (*Platform, error) {
	dataDir := cfg.GetWithDefault("DATA_DIR", "data")

	p := &Platform{
		Cfg:     cfg,
		DataDir: dataDir,
		Events:  eventlog.New(filepath.Join(dataDir, "events.jsonl")),
		States:  authstate.NewFileStore(filepath.Join(dataDir, "states.json")),
	}

	// Create MySQL config
	dbConfig := mysql.Config{
		User:      cfg.Get("MYSQL_USER"),
		Passwd:    cfg.Get("MYSQL_ROOT_PASSWORD"),
		Net:       "tcp",
		Addr:      fmt.Sprintf("%s:%s", cfg.Get("MYSQL_HOST"), cfg.Get("MYSQL_PORT")),
		DBName:    cfg.Get("MYSQL_DATABASE"),
		ParseTime: true,
	}

	// Create credential store
	if dbConfig.DBName != "" {
		store, err := credentials.NewStore(dbConfig.FormatDSN())
		if err != nil {
			return nil, err
		}
		p.Tokens = store
		p.closeStore = store.Close
	} else {
		path := filepath.Join(dataDir, "tokens.json")
		log.Println("[PLATFORM]: Warning, MYSQL_DATABASE not set, storing credentials in " + path)
		p.Tokens = credentials.NewFileStore(path)
	}

	// OAuth client credentials, both redirect env spellings accepted
	oauthCfg := amocrm.Config{
		ClientID:     cfg.Get("AMO_CLIENT_ID"),
		ClientSecret: cfg.Get("AMO_CLIENT_SECRET"),
		RedirectURI:  cfg.GetWithDefault("AMO_REDIRECT_URI", cfg.Get("AMO_REDIRECT_URL")),
	}
	p.Manager = amocrm.NewTokenManager(oauthCfg, p.Tokens)
	p.Client = amocrm.NewClient(p.Manager)

	// Report tuning, built-in defaults unless a settings file is named
	settings := report.DefaultSettings()
	if path := cfg.Get("REPORT_CONFIG_PATH"); path != "" {
		loaded, err := report.LoadSettings(path)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}
	p.Report = report.NewBuilder(p.Client, settings)

	// Telegram notifications, both env spellings accepted
	p.Telegram = telegram.NewNotifier(
		cfg.GetWithDefault("TG_BOT_TOKEN", cfg.Get("TELEGRAM_BOT_TOKEN")),
		cfg.GetWithDefault("TG_CHAT_ID", cfg.Get("TELEGRAM_CHAT_ID")),
	)
	if !p.Telegram.Enabled() {
		log.Println("[PLATFORM]: Warning, Telegram credentials not set, notifications disabled")
	}

	return p, nil
}

// Close releases the platform's backing resources.
func (p *Platform) Close() error {
	if p.closeStore != nil {
		return p.closeStore()
	}
	return nil
}
