/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

type mockServer struct {
	host    string
	handler http.Handler
	err     error
}

func (s *mockServer) ListenAndServe(host string, handler http.Handler, certFile, keyFile string) error {
	s.host, s.handler = host, handler

	return s.err
}

func TestStartCmdContents(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	require.Equal(t, "start", startCmd.Use)
	require.Equal(t, "Start an agent", startCmd.Short)
	require.Equal(t, "Start a VCX agent controller", startCmd.Long)

	checkFlagPropertiesCorrect(t, startCmd, agentHostFlagName, agentHostFlagShorthand, agentHostFlagUsage, "")
	checkFlagPropertiesCorrect(t, startCmd, agentWebhookFlagName, agentWebhookFlagShorthand,
		agentWebhookFlagUsage, "[]")
	checkFlagPropertiesCorrect(t, startCmd, configFileFlagName, configFileFlagShorthand, configFileFlagUsage, "")
}

func checkFlagPropertiesCorrect(t *testing.T, cmd *cobra.Command, flagName,
	flagShorthand, flagUsage, expectedVal string) {
	flag := cmd.Flag(flagName)

	require.NotNil(t, flag)
	require.Equal(t, flagName, flag.Name)
	require.Equal(t, flagShorthand, flag.Shorthand)
	require.Equal(t, flagUsage, flag.Usage)
	require.Equal(t, expectedVal, flag.Value.String())

	flagAnnotations := flag.Annotations
	require.Nil(t, flagAnnotations)
}

func TestStartCmdWithMissingHost(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	startCmd.SetArgs([]string{"--" + institutionNameFlagName, "faber"})

	err = startCmd.Execute()
	require.EqualError(t, err, "Neither api-host (command line flag) nor VCX_API_HOST (environment variable) have been set.")

	startCmd.SetArgs([]string{"--" + agentHostFlagName, "", "--" + institutionNameFlagName, "faber"})
	require.Equal(t, errMissingHost, startCmd.Execute())
}

func TestStartCmdInvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		err  string
	}{
		{"log level", []string{"--" + agentLogLevelFlagName, "loud"}, "failed to parse log level"},
		{"init timeout", []string{"--" + initTimeoutFlagName, "soon"}, "failed to parse init timeout"},
		{"sync only", []string{"--" + syncOnlyFlagName, "maybe"}, "invalid syntax"},
		{"missing institution", nil, "institution_name is required"},
		{"config file", []string{"--" + configFileFlagName, filepath.Join(t.TempDir(), "none.json")}, "failed to read config"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			startCmd, err := Cmd(&mockServer{})
			require.NoError(t, err)

			startCmd.SetArgs(append([]string{"--" + agentHostFlagName, "localhost:8080"}, tc.args...))

			err = startCmd.Execute()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestStartCmdServerFailure(t *testing.T) {
	startCmd, err := Cmd(&mockServer{err: errors.New("port in use")})
	require.NoError(t, err)

	startCmd.SetArgs([]string{"--" + agentHostFlagName, "localhost:8080", "--" + institutionNameFlagName, "faber"})

	err = startCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "port in use")
}

func TestStartCmdValidArgs(t *testing.T) {
	srv := &mockServer{}

	startCmd, err := Cmd(srv)
	require.NoError(t, err)

	startCmd.SetArgs([]string{
		"--" + agentHostFlagName, "localhost:8080",
		"--" + institutionNameFlagName, "faber",
		"--" + agentTokenFlagName, "secret",
		"--" + agentLogLevelFlagName, "DEBUG",
		"--" + agentWebhookFlagName, "http://localhost:9999/hook",
	})

	require.NoError(t, startCmd.Execute())
	require.Equal(t, "localhost:8080", srv.host)

	t.Run("bearer token", func(t *testing.T) {
		rr := serve(srv.handler, "/vcx/utility/version", "")
		require.Equal(t, http.StatusUnauthorized, rr.Code)

		rr = serve(srv.handler, "/vcx/utility/version", "secret")
		require.Equal(t, http.StatusOK, rr.Code)
		require.JSONEq(t, `{"version":"`+vcx.Version+`"}`, rr.Body.String())
	})

	t.Run("in-memory agency is served without token", func(t *testing.T) {
		rr := serve(srv.handler, "/agency/search", "")
		require.NotEqual(t, http.StatusUnauthorized, rr.Code)
		require.NotEqual(t, http.StatusNotFound, rr.Code)
	})
}

func TestStartCmdFromEnvAndConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"institution_name": "faber",
		"webhook_url": "http://localhost:9999/hook"
	}`), 0o600))

	t.Setenv(agentHostEnvKey, "localhost:8081")
	t.Setenv(configFileEnvKey, path)
	t.Setenv(institutionNameEnvKey, "faber college")
	t.Setenv(syncOnlyEnvKey, "true")

	srv := &mockServer{}

	startCmd, err := Cmd(srv)
	require.NoError(t, err)

	startCmd.SetArgs([]string{})
	require.NoError(t, startCmd.Execute())
	require.Equal(t, "localhost:8081", srv.host)

	rr := serve(srv.handler, "/vcx/utility/institution-info", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var info struct {
		Name    string `json:"institution_name"`
		Webhook string `json:"webhook_url"`
		DID     string `json:"institution_did"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	require.Equal(t, "faber college", info.Name)
	require.Equal(t, "http://localhost:9999/hook", info.Webhook)
	require.NotEmpty(t, info.DID)

	t.Run("async rejected", func(t *testing.T) {
		rr := serve(srv.handler, "/vcx/utility/version?async=true", "")
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func serve(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return rr
}
