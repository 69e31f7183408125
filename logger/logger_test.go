// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package logger

import (
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func getLogFile() string {
	// get temp location for logging
	return filepath.Join(os.TempDir(), "service-host-libs-test.log")
}

func logAllLevels(testName string) {
	log.Tracef("%s:%s", testName, log.TraceLevel.String())
	log.Debugf("%s:%s", testName, log.DebugLevel.String())
	log.Infof("%s:%s", testName, log.InfoLevel.String())
	log.Errorf("%s:%s", testName, log.ErrorLevel.String())
	log.Warnf("%s:%s", testName, log.WarnLevel.String())
}

func testContains(t *testing.T, logFile string, testName string, level string, shouldContain bool) {
	b, err := ioutil.ReadFile(logFile)
	assert.Equal(t, err, nil)

	switch level {
	case log.TraceLevel.String():
		assert.Equal(t, shouldContain, strings.Contains(string(b), fmt.Sprintf("%s:%s", testName, log.TraceLevel.String())))
		if !shouldContain {
			break
		}
		fallthrough
	case log.DebugLevel.String():
		assert.Equal(t, shouldContain, strings.Contains(string(b), fmt.Sprintf("%s:%s", testName, log.DebugLevel.String())))
		if !shouldContain {
			break
		}
		fallthrough
	case log.InfoLevel.String():
		assert.Equal(t, shouldContain, strings.Contains(string(b), fmt.Sprintf("%s:%s", testName, log.InfoLevel.String())))
		if !shouldContain {
			break
		}
		fallthrough
	case log.WarnLevel.String():
		assert.Equal(t, shouldContain, strings.Contains(string(b), fmt.Sprintf("%s:%s", testName, log.WarnLevel.String())))
		if !shouldContain {
			break
		}
		fallthrough
	case log.ErrorLevel.String():
		assert.Equal(t, shouldContain, strings.Contains(string(b), fmt.Sprintf("%s:%s", testName, log.ErrorLevel.String())))
	}
}

func TestInitLogging(t *testing.T) {
	logFile := getLogFile()

	// cleanup log file before test
	os.RemoveAll(logFile)

	// Test1: test overrides with params to log to only stdout
	err, lg := InitLogging("", nil, true, "")
	assert.NoError(t, err)
	lg.LogToTrace("Info", "no tracer")
	lg.CloseTracer()

	// verify logging with override to stdout only
	testName := "test_param_override_stdout_only"
	logAllLevels(testName)
	// test nothing is logged to file or file not created
	_, err = os.Stat(logFile)
	assert.Equal(t, true, os.IsNotExist(err))

	// Test 2: initialize logger with nil params to verify default levels
	InitLogging(logFile, nil, false, "")

	// verify default info level setting with no params
	assert.Equal(t, DefaultLogLevel, log.GetLevel().String())

	// verify logging with info level and below
	testName = "test_default_info_level"
	logAllLevels(testName)
	testContains(t, logFile, testName, "info", true)
	testContains(t, logFile, testName, "warn", true)
	testContains(t, logFile, testName, "error", true)
	testContains(t, logFile, testName, "trace", false)
	testContains(t, logFile, testName, "debug", false)

	// Test3: initialize logger with override of trace level
	InitLogging(logFile, &LogParams{Level: "trace"}, false, "")

	// verify trace level setting with param override
	assert.Equal(t, log.TraceLevel.String(), log.GetLevel().String())

	// verify logging with trace level and below
	testName = "test_param_override_trace_level"
	logAllLevels(testName)
	testContains(t, logFile, testName, "info", true)
	testContains(t, logFile, testName, "warn", true)
	testContains(t, logFile, testName, "error", true)
	testContains(t, logFile, testName, "trace", true)
	testContains(t, logFile, testName, "debug", true)

	// Test4: initialize logger with env vars for info level
	os.Setenv("LOG_LEVEL", "debug")
	InitLogging(logFile, nil, false, "")
	// verify logging with debug level and below
	testName = "test_env_debug_level"
	logAllLevels(testName)
	testContains(t, logFile, testName, "info", true)
	testContains(t, logFile, testName, "warn", true)
	testContains(t, logFile, testName, "error", true)
	testContains(t, logFile, testName, "debug", true)
	testContains(t, logFile, testName, "trace", false)

	// Test5: initialize logger with invalid log format through env
	os.Setenv("LOG_FORMAT", "yaml")
	InitLogging(logFile, nil, false, "")

	// verify log format is set to default value of text
	assert.Equal(t, logParams.GetLogFormat(), DefaultLogFormat)

	// Test6: initialize logger with invalid log files limit through config
	InitLogging(logFile, &LogParams{MaxFiles: 1000}, false, "")

	// verify log files is set to default value of 10
	assert.Equal(t, logParams.GetMaxFiles(), DefaultMaxLogFiles)

	// Test7: test overrides with env variables even when params is not nil
	os.Setenv("LOG_LEVEL", "info")
	InitLogging(logFile, &LogParams{Level: "trace"}, false, "")

	// verify logging with only info level and below with override from env
	testName = "test_env_override_info_level"
	logAllLevels(testName)
	testContains(t, logFile, testName, "info", true)
	testContains(t, logFile, testName, "warn", true)
	testContains(t, logFile, testName, "error", true)
	testContains(t, logFile, testName, "debug", false)
	testContains(t, logFile, testName, "trace", false)

	// cleanup log file and environment after test
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("LOG_FORMAT")
	os.RemoveAll(logFile)
}

func TestSetLevel(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	assert.NoError(t, SetLevel("trace"))
	assert.Equal(t, log.TraceLevel, GetLevel())
	assert.True(t, IsLevelEnabled(log.DebugLevel))

	assert.Error(t, SetLevel("verbose"))
	assert.Equal(t, log.TraceLevel, GetLevel())
}

func TestScrubber(t *testing.T) {
	assert.Equal(t, []string{"-v", "console"}, Scrubber([]string{"-v", "console"}))
	assert.Equal(t, []string{"**********"}, Scrubber([]string{"-password", "secret"}))

	scrubbed := MapScrubber(map[string]string{"userName": "admin", "logName": "Services"})
	assert.Equal(t, "**********", scrubbed["userName"])
	assert.Equal(t, "Services", scrubbed["logName"])
}

func TestHTTPLogger(t *testing.T) {
	handler := HTTPLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}), "status")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusAccepted, recorder.Code)
}

type countingSink struct {
	logged []Severity
	closed int
}

func (c *countingSink) Log(severity Severity, msg string) error {
	c.logged = append(c.logged, severity)
	return nil
}

func (c *countingSink) Close() error {
	c.closed++
	return nil
}

func TestLazySink(t *testing.T) {
	sink := &countingSink{}
	created := 0
	lazy := NewLazySink("Example", func(source string) (Sink, error) {
		created++
		return sink, nil
	})

	// nothing is created until the first message
	assert.NoError(t, lazy.Close())
	assert.Equal(t, 0, created)

	lazy = NewLazySink("Example", func(source string) (Sink, error) {
		created++
		return sink, nil
	})
	assert.NoError(t, lazy.Log(SeverityInformation, "started"))
	assert.NoError(t, lazy.Log(SeverityError, "failed"))
	assert.Equal(t, 1, created)
	assert.Equal(t, []Severity{SeverityInformation, SeverityError}, sink.logged)

	assert.NoError(t, lazy.Close())
	assert.NoError(t, lazy.Close())
	assert.Equal(t, 1, sink.closed)
	assert.Error(t, lazy.Log(SeverityWarning, "after close"))
}

func TestLazySinkFactoryFailure(t *testing.T) {
	attempts := 0
	lazy := NewLazySink("Example", func(source string) (Sink, error) {
		attempts++
		return nil, errors.New("event source not registered")
	})
	assert.EqualError(t, lazy.Log(SeverityWarning, "first"), "event source not registered")
	assert.Error(t, lazy.Log(SeverityWarning, "second"))
	assert.Equal(t, 1, attempts)
	assert.NoError(t, lazy.Close())

	// a nil factory silently drops messages
	assert.NoError(t, NewLazySink("Example", nil).Log(SeverityInformation, "dropped"))
}

func TestConsoleSink(t *testing.T) {
	sink, err := NewConsoleSink("Example")
	assert.NoError(t, err)
	assert.NoError(t, sink.Log(SeverityWarning, "console"))
	assert.NoError(t, sink.Close())
	assert.Equal(t, "Warning", SeverityWarning.String())
	assert.Equal(t, fmt.Sprintf("Severity(%d)", 9), Severity(9).String())
}
