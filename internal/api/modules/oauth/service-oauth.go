package oauth_module

import (
	"log"

	"github.com/robfig/cron/v3"

	"github.com/watereef7/loss-control-backend/internal/platform"
	"github.com/watereef7/loss-control-backend/internal/stores/authstate"
	"github.com/watereef7/loss-control-backend/internal/stores/eventlog"
	"github.com/watereef7/loss-control-backend/pkg/amocrm"
	"github.com/watereef7/loss-control-backend/pkg/utils"
)

// AUTH_PAGE_URL is the provider's consent screen for the RU region.
const AUTH_PAGE_URL = "https://www.amocrm.ru/oauth"

// OauthService runs the connect flow: it issues consent URLs with pending
// states and turns provider callbacks into stored credentials.
type OauthService struct {
	manager *amocrm.TokenManager
	states  authstate.Store
	events  *eventlog.Log
	cfg     *utils.Config
	cron    *cron.Cron
}

var service *OauthService

/** ---- INIT ---- */

// Init wires the oauth module to the platform and starts the janitor that
// clears abandoned handshakes
func Init(p *platform.Platform) error {
	service = &OauthService{
		manager: p.Manager,
		states:  p.States,
		events:  p.Events,
		cfg:     p.Cfg,
	}

	service.cron = cron.New()
	if _, err := service.cron.AddFunc("@every 5m", func() {
		if err := service.states.Purge(); err != nil {
			log.Printf("[OAUTH]: Warning, state purge failed: %v", err)
		}
	}); err != nil {
		return err
	}
	service.cron.Start()

	return nil
}

// Stop halts the background state janitor
func Stop() {
	if service != nil && service.cron != nil {
		service.cron.Stop()
	}
}
