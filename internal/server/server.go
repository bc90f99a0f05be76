package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tartampluch/birthday-manager/internal/app"
	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/metrics"
	"github.com/tartampluch/birthday-manager/internal/notify"
)

// SecretSetter stores bot tokens submitted with a channel configuration.
type SecretSetter interface {
	SetTelegramToken(group, token string) error
}

// Deps are the collaborators of the HTTP layer. Only Service is mandatory.
type Deps struct {
	Service  *app.Service
	Sender   notify.Sender
	Composer *notify.Composer
	Calendar *Calendar
	Metrics  *metrics.Manager
	Secrets  SecretSetter
	Logger   *slog.Logger
	// Changed is called after every successful write so the feed can be rebuilt.
	Changed func()
}

// Server exposes the REST API, the ICS feed and the metrics endpoint.
type Server struct {
	Deps
	addr string
}

// New prepares a server for addr. It does not listen until Start.
func New(addr string, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Calendar == nil {
		d.Calendar = NewCalendar()
	}
	if d.Changed == nil {
		d.Changed = func() {}
	}
	return &Server{Deps: d, addr: addr}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	log := s.Logger.With(slog.String(config.LogKeyComponent, config.CompServer))

	r := chi.NewRouter()
	r.Use(recovery(log), requestID, observe(log, s.Metrics), cors)

	r.Get(config.RouteHealth, s.health)
	r.Handle(config.RouteMetrics, s.Metrics.Handler())
	r.Handle(config.RouteCalendar, s.Calendar)

	r.Route(config.RouteAPI, func(r chi.Router) {
		r.Get(config.RoutePeople, s.listPeople)
		r.Post(config.RoutePeople, s.createPerson)
		r.Get(config.RoutePeopleID, s.getPerson)
		r.Put(config.RoutePeopleID, s.updatePerson)
		r.Delete(config.RoutePeopleID, s.deletePerson)
		r.Get(config.RoutePeopleGroup, s.listPeopleByGroup)

		r.Get(config.RouteGroups, s.listGroups)
		r.Post(config.RouteGroups, s.createGroup)
		r.Delete(config.RouteGroupID, s.deleteGroup)

		r.Get(config.RouteUpcoming, s.upcoming)
		r.Get(config.RouteToday, s.today)
		r.Get(config.RouteStatistics, s.statistics)

		r.Get(config.RouteExportCSV, s.exportAs(config.FormatCSV, config.MimeCSV, config.FileNameCSV))
		r.Get(config.RouteExportVCard, s.exportAs(config.FormatVCard, config.MimeVCard, config.FileNameVCard))
		r.Post(config.RouteImportCSV, s.importCSV)
		r.Get(config.RouteSampleCSV, s.sampleCSV)
		r.Post(config.RouteImportVCard, s.importVCard)

		r.Get(config.RouteCommGroups, s.listChannelConfigs)
		r.Get(config.RouteCommGroup, s.getChannelConfig)
		r.Post(config.RouteCommGroup, s.saveChannelConfig)
		r.Post(config.RouteCommSend, s.send)
		r.Post(config.RouteCommTest, s.sendTest)
		r.Get(config.RouteCommLog, s.communicationLog)
		r.Get(config.RouteWhatsAppToday, s.whatsAppToday)
	})

	return r
}

// Start listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.addr == "" {
		return errors.New(config.ErrAddrRequired)
	}

	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Routes(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		s.Logger.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyAddr, s.addr,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.Logger.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}
