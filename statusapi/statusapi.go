// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package statusapi serves the service status record over local HTTP and accepts control codes
// for debugging.
package statusapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/notification"
	"github.com/hpe-storage/service-host-libs/service"
	"github.com/hpe-storage/service-host-libs/svcerrors"
)

const (
	shutdownTimeout = 2 * time.Second
)

// Controller is the part of service.Controller exposed over HTTP
type Controller interface {
	Status() service.Status
	Config() service.Config
	HandleControl(ev service.ControlEvent) uint32
}

// SessionLister enumerates the sessions on the local machine
type SessionLister func() ([]*notification.SessionData, error)

// Option configures optional routes
type Option func(*handler)

// WithSessions serves GET /sessions from list
func WithSessions(list SessionLister) Option {
	return func(h *handler) {
		h.sessions = list
	}
}

// Response is the body of every reply
type Response struct {
	Data interface{} `json:"data,omitempty"`
	Err  interface{} `json:"errors,omitempty"`
}

// StatusReply is the data of GET /status
type StatusReply struct {
	Name   string         `json:"name"`
	State  string         `json:"state"`
	Status service.Status `json:"status"`
}

// Route binds a method and pattern to a handler
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

// NewRouter creates a new mux.Router serving controller
func NewRouter(controller Controller, opts ...Option) *mux.Router {
	h := &handler{controller: controller}
	for _, opt := range opts {
		opt(h)
	}
	routes := []Route{
		///////////////////////////////////////////////////////////////////////////////////////////
		// Endpoint:  		GET /status
		// Description: 	Returns the current status record
		// Output Object:	StatusReply
		///////////////////////////////////////////////////////////////////////////////////////////
		{
			Name:        "Status",
			Method:      "GET",
			Pattern:     "/status",
			HandlerFunc: h.getStatus,
		},

		///////////////////////////////////////////////////////////////////////////////////////////
		// Endpoint:  		POST /control/{code}
		// Description: 	Dispatches a control code, given by name ("pause") or number ("0x80")
		// Output Object:	StatusReply after the control was handled
		///////////////////////////////////////////////////////////////////////////////////////////
		{
			Name:        "Control",
			Method:      "POST",
			Pattern:     "/control/{code}",
			HandlerFunc: h.postControl,
		},
	}
	if h.sessions != nil {
		routes = append(routes,
			///////////////////////////////////////////////////////////////////////////////////////
			// Endpoint:  		GET /sessions
			// Description: 	Lists the sessions on the local machine
			// Output Object:	[]notification.SessionData
			///////////////////////////////////////////////////////////////////////////////////////
			Route{
				Name:        "Sessions",
				Method:      "GET",
				Pattern:     "/sessions",
				HandlerFunc: h.getSessions,
			})
	}

	router := mux.NewRouter().StrictSlash(true)
	for _, route := range routes {
		router.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(log.HTTPLogger(route.HandlerFunc, route.Name))
	}
	return router
}

type handler struct {
	controller Controller
	sessions   SessionLister
}

func (h *handler) reply() StatusReply {
	status := h.controller.Status()
	return StatusReply{Name: h.controller.Config().Name, State: status.State.String(), Status: status}
}

func (h *handler) getStatus(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, Response{Data: h.reply()}, http.StatusOK)
}

func (h *handler) getSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions()
	if err != nil {
		handleError(w, svcerrors.New(svcerrors.Unknown, err), http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []*notification.SessionData{}
	}
	writeResponse(w, Response{Data: sessions}, http.StatusOK)
}

func (h *handler) postControl(w http.ResponseWriter, r *http.Request) {
	code, err := service.ParseControlCode(mux.Vars(r)["code"])
	if err != nil {
		handleError(w, svcerrors.New(svcerrors.Unknown, err), http.StatusBadRequest)
		return
	}
	if code == service.Start {
		handleError(w, svcerrors.New(svcerrors.Unknown, "the service is started by the host"), http.StatusBadRequest)
		return
	}
	h.controller.HandleControl(service.ControlEvent{Code: code})
	writeResponse(w, Response{Data: h.reply()}, http.StatusOK)
}

func handleError(w http.ResponseWriter, err *svcerrors.ServiceError, statusCode int) {
	log.Error("Err :", err.Error())
	writeResponse(w, Response{Err: err}, statusCode)
}

func writeResponse(w http.ResponseWriter, resp Response, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warnf("unable to write response, err=%v", err)
	}
}

// Server is the local status endpoint
type Server struct {
	address  string
	router   *mux.Router
	lock     sync.Mutex
	listener net.Listener
	server   *http.Server
	done     chan struct{}
}

// NewServer returns a server for controller listening on address.  Only loopback addresses
// are accepted.
func NewServer(address string, controller Controller, opts ...Option) (*Server, error) {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return nil, svcerrors.New(svcerrors.StartupFailure, err)
	}
	if host != "localhost" {
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return nil, svcerrors.Errorf(svcerrors.StartupFailure, "status address %s is not a loopback address", address)
		}
	}
	return &Server{address: address, router: NewRouter(controller, opts...)}, nil
}

// Start listens and serves in the background
func (s *Server) Start() error {
	log.Tracef(">>>>> Start, address=%s", s.address)
	defer log.Trace("<<<<< Start")

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.listener != nil {
		return svcerrors.New(svcerrors.StartupFailure, "status server already started")
	}
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		log.Error("listen error, unable to create status server ", err.Error())
		return svcerrors.New(svcerrors.StartupFailure, err)
	}
	s.listener = listener
	s.server = &http.Server{Handler: s.router}
	s.done = make(chan struct{})

	server, done := s.server, s.done
	go func() {
		defer close(done)
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Errorf("status server failed, err=%v", err)
		}
	}()
	log.Infof("status server listening on %s", listener.Addr())
	return nil
}

// Address returns the address being served, which resolves a ":0" port
func (s *Server) Address() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.listener == nil {
		return s.address
	}
	return s.listener.Addr().String()
}

// URL returns the base URL of the server
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s", s.Address())
}

// Stop shuts the server down and waits for it to exit
func (s *Server) Stop() error {
	log.Trace(">>>>> Stop")
	defer log.Trace("<<<<< Stop")

	s.lock.Lock()
	server, done := s.server, s.done
	s.server, s.listener = nil, nil
	s.lock.Unlock()
	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := server.Shutdown(ctx)
	<-done
	return err
}
