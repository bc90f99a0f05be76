package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tartampluch/birthday-manager/internal/app"
	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/exchange"
	"github.com/tartampluch/birthday-manager/internal/notify"
	"github.com/tartampluch/birthday-manager/internal/store"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.Store().Health(r.Context()); err != nil {
		s.Logger.WarnContext(r.Context(), config.HTTPMsgUnhealthy,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
		writeError(w, http.StatusServiceUnavailable, config.HTTPMsgUnhealthy, config.CodeUnhealthy)
		return
	}
	writeSuccess(w, map[string]string{"status": "healthy"})
}

// People

func (s *Server) listPeople(w http.ResponseWriter, r *http.Request) {
	people, err := s.Service.People(r.Context(), r.URL.Query().Get(config.QueryGroup))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, people)
}

func (s *Server) listPeopleByGroup(w http.ResponseWriter, r *http.Request) {
	people, err := s.Service.People(r.Context(), chi.URLParam(r, config.ParamGroup))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, people)
}

func (s *Server) getPerson(w http.ResponseWriter, r *http.Request) {
	p, err := s.Service.Store().GetPerson(r.Context(), chi.URLParam(r, config.ParamID))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, p)
}

func (s *Server) createPerson(w http.ResponseWriter, r *http.Request) {
	var p store.Person
	if !decodeBody(w, r, &p) {
		return
	}
	p.ID = ""
	if err := s.Service.Store().CreatePerson(r.Context(), &p); err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.Changed()
	writeCreated(w, p)
}

func (s *Server) updatePerson(w http.ResponseWriter, r *http.Request) {
	var p store.Person
	if !decodeBody(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, config.ParamID)
	if err := s.Service.Store().UpdatePerson(r.Context(), &p); err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.Changed()
	writeSuccess(w, p)
}

func (s *Server) deletePerson(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.Store().DeletePerson(r.Context(), chi.URLParam(r, config.ParamID)); err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.Changed()
	writeSuccess(w, nil)
}

// Groups

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.Service.Store().ListGroups(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, groups)
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	g, err := s.Service.Store().CreateGroup(r.Context(), req.Name)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeCreated(w, g)
}

func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, config.ParamID), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, config.HTTPMsgInvalidID)
		return
	}
	if err := s.Service.Store().DeleteGroup(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.Changed()
	writeSuccess(w, nil)
}

// Anniversaries

func (s *Server) upcoming(w http.ResponseWriter, r *http.Request) {
	days := config.DefaultUpcomingDays
	if v := r.URL.Query().Get(config.QueryDays); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, config.HTTPMsgInvalidDays)
			return
		}
		days = n
	}

	list, err := s.Service.UpcomingWithin(r.Context(), s.Service.Today(), days)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, list)
}

func (s *Server) today(w http.ResponseWriter, r *http.Request) {
	list, err := s.Service.BirthdaysToday(r.Context(), s.Service.Today())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, list)
}

func (s *Server) statistics(w http.ResponseWriter, r *http.Request) {
	st, err := s.Service.Statistics(r.Context(), s.Service.Today())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, st)
}

// Import / export

func (s *Server) exportAs(format, mime, filename string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := s.Service.Export(r.Context(), &buf, format); err != nil {
			writeStoreError(w, r, err)
			return
		}
		w.Header().Set(config.HeaderContentType, mime)
		w.Header().Set(config.HeaderContentDisposition, fmt.Sprintf(config.FormatAttachment, filename))
		_, _ = buf.WriteTo(w)
	}
}

func (s *Server) sampleCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(config.HeaderContentType, config.MimeCSV)
	w.Header().Set(config.HeaderContentDisposition, fmt.Sprintf(config.FormatAttachment, config.FileNameSample))
	if err := exchange.SampleCSV(w); err != nil {
		s.Logger.ErrorContext(r.Context(), config.ErrWriteResp, config.LogKeyError, err)
	}
}

func (s *Server) importCSV(w http.ResponseWriter, r *http.Request) {
	data, ok := readUpload(w, r)
	if !ok {
		return
	}
	rep, err := s.Service.ImportCSV(r.Context(), data)
	if errors.Is(err, exchange.ErrCSVTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, config.HTTPMsgTooLarge, config.CodeBadRequest)
		return
	}
	if errors.Is(err, app.ErrInvalidImport) {
		writeJSON(w, http.StatusBadRequest, Response{
			Data:  rep,
			Error: &ErrorInfo{Message: err.Error(), Code: config.CodeBadRequest},
		})
		return
	}
	s.finishImport(w, r, rep, err)
}

func (s *Server) importVCard(w http.ResponseWriter, r *http.Request) {
	data, ok := readUpload(w, r)
	if !ok {
		return
	}
	rep, err := s.Service.ImportVCards(r.Context(), bytes.NewReader(data))
	if errors.Is(err, exchange.ErrMalformed) {
		writeBadRequest(w, err.Error())
		return
	}
	s.finishImport(w, r, rep, err)
}

func (s *Server) finishImport(w http.ResponseWriter, r *http.Request, rep app.ImportReport, err error) {
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.Changed()
	writeSuccess(w, rep)
}

// Communication

// channelConfigRequest carries the bot token next to the stored fields; the
// token goes to the keyring and is never persisted in the database.
type channelConfigRequest struct {
	store.ChannelConfig
	TelegramBotToken string `json:"telegram_bot_token,omitempty"`
}

func (s *Server) listChannelConfigs(w http.ResponseWriter, r *http.Request) {
	cfgs, err := s.Service.ListChannelConfigs(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, cfgs)
}

func (s *Server) getChannelConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.Service.Store().GetChannelConfig(r.Context(), chi.URLParam(r, config.ParamGroup))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, cfg)
}

func (s *Server) saveChannelConfig(w http.ResponseWriter, r *http.Request) {
	var req channelConfigRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.GroupName = chi.URLParam(r, config.ParamGroup)

	if token := strings.TrimSpace(req.TelegramBotToken); token != "" && s.Secrets != nil {
		if err := s.Secrets.SetTelegramToken(req.GroupName, token); err != nil {
			writeStoreError(w, r, fmt.Errorf("%s: %w", config.ErrSecretStore, err))
			return
		}
	}

	cfg := req.ChannelConfig
	if err := s.Service.Store().SaveChannelConfig(r.Context(), &cfg); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, cfg)
}

type sendRequest struct {
	Message string `json:"message"`
	Subject string `json:"subject"`
}

type sendResponse struct {
	Group   string          `json:"group"`
	Message string          `json:"message"`
	Results []notify.Result `json:"results"`
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeBadRequest(w, config.HTTPMsgNoMessage)
		return
	}
	s.dispatch(w, r, chi.URLParam(r, config.ParamGroup), req.Subject, req.Message)
}

func (s *Server) sendTest(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, config.ParamGroup)
	s.dispatch(w, r, group, s.Composer.Subject(group), s.Composer.TestMessage(group, s.Service.Now()))
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, group, subject, body string) {
	results, err := s.Sender.Send(r.Context(), group, subject, body)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if results == nil {
		results = []notify.Result{}
	}
	writeSuccess(w, sendResponse{Group: group, Message: body, Results: results})
}

func (s *Server) communicationLog(w http.ResponseWriter, r *http.Request) {
	limit := config.DefaultLogLimit
	if v := r.URL.Query().Get(config.QueryLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeBadRequest(w, config.HTTPMsgInvalidLimit)
			return
		}
		limit = n
	}

	entries, err := s.Service.Store().ListCommunicationLog(r.Context(), r.URL.Query().Get(config.QueryGroup), limit)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, entries)
}

func (s *Server) whatsAppToday(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Service.WhatsAppToday(r.Context(), s.Service.Today(), s.Composer)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, entries)
}

// Helpers

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, config.MaxUploadSize))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, config.HTTPMsgTooLarge, config.CodeBadRequest)
			return false
		}
		writeBadRequest(w, config.HTTPMsgInvalidBody)
		return false
	}
	return true
}

func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, config.MaxUploadSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, config.HTTPMsgTooLarge, config.CodeBadRequest)
			return nil, false
		}
		writeBadRequest(w, config.HTTPMsgInvalidBody)
		return nil, false
	}
	return data, true
}
