// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/hpe-storage/service-host-libs/notification"
	"github.com/hpe-storage/service-host-libs/service"
	"github.com/hpe-storage/service-host-libs/statusapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusAPILifecycle(t *testing.T) {
	example := newExampleService("127.0.0.1:0")
	controller := service.NewController(service.Config{Name: "ExampleTest"}, example.hooks(), service.NewLogPublisher())
	defer controller.Close()
	example.bind(controller)

	require.NoError(t, controller.Run(nil))
	require.NotNil(t, example.server)

	resp, err := http.Get(example.server.URL() + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var reply struct {
		Data statusapi.StatusReply `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, "ExampleTest", reply.Data.Name)

	controller.HandleControl(service.ControlEvent{Code: service.Stop})
	assert.Nil(t, example.server)
	assert.Equal(t, service.Stopped, controller.Status().State)
}

func TestStatusAPIDisabled(t *testing.T) {
	example := newExampleService("")
	controller := service.NewController(service.Config{Name: "ExampleTest"}, example.hooks(), service.NewLogPublisher())
	defer controller.Close()
	example.bind(controller)

	require.NoError(t, controller.Run([]string{"-verbose"}))
	assert.Nil(t, example.server)
	controller.HandleControl(service.ControlEvent{Code: service.Stop})
	assert.Equal(t, service.Stopped, controller.Status().State)
}

func TestStatusAPIRejectsRemoteAddress(t *testing.T) {
	example := newExampleService("0.0.0.0:0")
	controller := service.NewController(service.Config{Name: "ExampleTest"}, example.hooks(), service.NewLogPublisher())
	defer controller.Close()
	example.bind(controller)

	require.NoError(t, controller.Run(nil))
	assert.Nil(t, example.server)
}

func TestStatusAPIServesSessions(t *testing.T) {
	example := newExampleService("127.0.0.1:0")
	example.sessions = func() ([]*notification.SessionData, error) {
		return []*notification.SessionData{{SessionID: 1, WinStationName: "Console"}}, nil
	}
	controller := service.NewController(service.Config{Name: "ExampleTest"}, example.hooks(), service.NewLogPublisher())
	defer controller.Close()
	example.bind(controller)

	require.NoError(t, controller.Run(nil))
	require.NotNil(t, example.server)
	defer controller.HandleControl(service.ControlEvent{Code: service.Stop})

	resp, err := http.Get(example.server.URL() + "/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var reply struct {
		Data []notification.SessionData `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	require.Len(t, reply.Data, 1)
	assert.Equal(t, "Console", reply.Data[0].WinStationName)
}
