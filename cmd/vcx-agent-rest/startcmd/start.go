/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/hyperledger/aries-vcx-go/pkg/controller"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/transport"
	vcxhttp "github.com/hyperledger/aries-vcx-go/pkg/didcomm/transport/http"
	mockledger "github.com/hyperledger/aries-vcx-go/pkg/mock/ledger"
	mocktransport "github.com/hyperledger/aries-vcx-go/pkg/mock/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

const (
	// api host flag.
	agentHostFlagName      = "api-host"
	agentHostEnvKey        = "VCX_API_HOST"
	agentHostFlagShorthand = "a"
	agentHostFlagUsage     = "Host Name:Port." +
		" Alternatively, this can be set with the following environment variable: " + agentHostEnvKey

	// api token flag.
	agentTokenFlagName      = "api-token"
	agentTokenEnvKey        = "VCX_API_TOKEN" // nolint:gosec
	agentTokenFlagShorthand = "t"
	agentTokenFlagUsage     = "Check for bearer token in the authorization header (optional)." +
		" Alternatively, this can be set with the following environment variable: " + agentTokenEnvKey

	// engine config file flag.
	configFileFlagName      = "config"
	configFileEnvKey        = "VCX_CONFIG"
	configFileFlagShorthand = "c"
	configFileFlagUsage     = "Path of the JSON engine configuration (optional)." +
		" Alternatively, this can be set with the following environment variable: " + configFileEnvKey

	// institution name flag.
	institutionNameFlagName      = "institution-name"
	institutionNameEnvKey        = "VCX_INSTITUTION_NAME"
	institutionNameFlagShorthand = "n"
	institutionNameFlagUsage     = "Institution name shown to other parties. Overrides the configuration file." +
		" Alternatively, this can be set with the following environment variable: " + institutionNameEnvKey

	// agency endpoint flag.
	agencyEndpointFlagName      = "agency-endpoint"
	agencyEndpointEnvKey        = "VCX_AGENCY_ENDPOINT"
	agencyEndpointFlagShorthand = "g"
	agencyEndpointFlagUsage     = "Agency endpoint. Overrides the configuration file." +
		" When no agency is configured an in-memory agency is served at http://<api-host>/agency." +
		" Alternatively, this can be set with the following environment variable: " + agencyEndpointEnvKey

	// webhook url flag.
	agentWebhookFlagName      = "webhook-url"
	agentWebhookEnvKey        = "VCX_WEBHOOK_URL"
	agentWebhookFlagShorthand = "w"
	agentWebhookFlagUsage     = "URL to send notifications to." +
		" This flag can be repeated, allowing for multiple listeners." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " + agentWebhookEnvKey

	// log level.
	agentLogLevelFlagName  = "log-level"
	agentLogLevelEnvKey    = "VCX_LOG_LEVEL"
	agentLogLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + agentLogLevelEnvKey

	// engine init timeout flag.
	initTimeoutFlagName  = "init-timeout"
	initTimeoutEnvKey    = "VCX_INIT_TIMEOUT"
	initTimeoutFlagUsage = "Total time in seconds to retry engine initialization before giving up." +
		" Default: " + initTimeoutDefault + " seconds." +
		" Alternatively, this can be set with the following environment variable: " + initTimeoutEnvKey
	initTimeoutDefault = "10"

	// sync only flag.
	syncOnlyFlagName  = "sync-only"
	syncOnlyEnvKey    = "VCX_SYNC_ONLY"
	syncOnlyFlagUsage = "Reject ?async=true requests." +
		" Possible values [true] [false]. Defaults to false if not set." +
		" Alternatively, this can be set with the following environment variable: " + syncOnlyEnvKey

	agentTLSCertFileFlagName  = "tls-cert-file"
	agentTLSCertFileEnvKey    = "TLS_CERT_FILE"
	agentTLSCertFileFlagUsage = "tls certificate file." +
		" Alternatively, this can be set with the following environment variable: " + agentTLSCertFileEnvKey

	agentTLSKeyFileFlagName  = "tls-key-file"
	agentTLSKeyFileEnvKey    = "TLS_KEY_FILE"
	agentTLSKeyFileFlagUsage = "tls key file." +
		" Alternatively, this can be set with the following environment variable: " + agentTLSKeyFileEnvKey
)

var (
	errMissingHost = errors.New("host not provided")
	logger         = log.New("vcx/agent-rest")
)

type agentParameters struct {
	server                      Server
	host, token                 string
	configFile, institutionName string
	agencyEndpoint              string
	tlsCertFile, tlsKeyFile     string
	webhookURLs                 []string
	initTimeout                 uint64
	syncOnly                    bool
}

// Server serves the controller routes.
type Server interface {
	ListenAndServe(host string, router http.Handler, certFile, keyFile string) error
}

// HTTPServer represents an actual server implementation.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation.
func (s *HTTPServer) ListenAndServe(host string, router http.Handler, certFile, keyFile string) error {
	if certFile != "" && keyFile != "" {
		return http.ListenAndServeTLS(host, certFile, keyFile, router)
	}

	return http.ListenAndServe(host, router) //nolint:gosec
}

// Cmd returns the Cobra start command.
func Cmd(server Server) (*cobra.Command, error) {
	startCmd := createStartCMD(server)

	createFlags(startCmd)

	return startCmd, nil
}

func createStartCMD(server Server) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start an agent",
		Long:  `Start a VCX agent controller`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logLevel, err := getUserSetVar(cmd, agentLogLevelFlagName, agentLogLevelEnvKey, true)
			if err != nil {
				return err
			}

			if err = setLogLevel(logLevel); err != nil {
				return err
			}

			parameters, err := getParameters(cmd)
			if err != nil {
				return err
			}

			parameters.server = server

			return startAgent(parameters)
		},
	}
}

func getParameters(cmd *cobra.Command) (*agentParameters, error) {
	p := &agentParameters{}

	var err error

	vars := []struct {
		flagName, envKey string
		isOptional       bool
		dest             *string
	}{
		{agentHostFlagName, agentHostEnvKey, false, &p.host},
		{agentTokenFlagName, agentTokenEnvKey, true, &p.token},
		{configFileFlagName, configFileEnvKey, true, &p.configFile},
		{institutionNameFlagName, institutionNameEnvKey, true, &p.institutionName},
		{agencyEndpointFlagName, agencyEndpointEnvKey, true, &p.agencyEndpoint},
		{agentTLSCertFileFlagName, agentTLSCertFileEnvKey, true, &p.tlsCertFile},
		{agentTLSKeyFileFlagName, agentTLSKeyFileEnvKey, true, &p.tlsKeyFile},
	}

	for _, v := range vars {
		if *v.dest, err = getUserSetVar(cmd, v.flagName, v.envKey, v.isOptional); err != nil {
			return nil, err
		}
	}

	p.webhookURLs, err = getUserSetVars(cmd, agentWebhookFlagName, agentWebhookEnvKey, true)
	if err != nil {
		return nil, err
	}

	p.initTimeout, err = getInitTimeout(cmd)
	if err != nil {
		return nil, err
	}

	p.syncOnly, err = getBoolValue(cmd, syncOnlyFlagName, syncOnlyEnvKey)
	if err != nil {
		return nil, err
	}

	return p, nil
}

func getInitTimeout(cmd *cobra.Command) (uint64, error) {
	timeout, err := getUserSetVar(cmd, initTimeoutFlagName, initTimeoutEnvKey, true)
	if err != nil {
		return 0, err
	}

	if timeout == "" || timeout == "0" {
		timeout = initTimeoutDefault
	}

	t, err := strconv.ParseUint(timeout, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse init timeout %s: %w", timeout, err)
	}

	return t, nil
}

func getBoolValue(cmd *cobra.Command, flagName, envKey string) (bool, error) {
	v, err := getUserSetVar(cmd, flagName, envKey, true)
	if err != nil {
		return false, err
	}

	if v == "" {
		return false, nil
	}

	return strconv.ParseBool(v)
}

func createFlags(startCmd *cobra.Command) {
	// agent host flag
	startCmd.Flags().StringP(agentHostFlagName, agentHostFlagShorthand, "", agentHostFlagUsage)

	// agent token flag
	startCmd.Flags().StringP(agentTokenFlagName, agentTokenFlagShorthand, "", agentTokenFlagUsage)

	// engine config
	startCmd.Flags().StringP(configFileFlagName, configFileFlagShorthand, "", configFileFlagUsage)

	// institution name
	startCmd.Flags().StringP(institutionNameFlagName, institutionNameFlagShorthand, "", institutionNameFlagUsage)

	// agency endpoint
	startCmd.Flags().StringP(agencyEndpointFlagName, agencyEndpointFlagShorthand, "", agencyEndpointFlagUsage)

	// webhook url flag
	startCmd.Flags().StringSliceP(agentWebhookFlagName, agentWebhookFlagShorthand, []string{}, agentWebhookFlagUsage)

	// log level
	startCmd.Flags().StringP(agentLogLevelFlagName, "", "", agentLogLevelFlagUsage)

	// init timeout
	startCmd.Flags().StringP(initTimeoutFlagName, "", "", initTimeoutFlagUsage)

	// sync only
	startCmd.Flags().StringP(syncOnlyFlagName, "", "", syncOnlyFlagUsage)

	// tls cert file
	startCmd.Flags().StringP(agentTLSCertFileFlagName, "", "", agentTLSCertFileFlagUsage)

	// tls key file
	startCmd.Flags().StringP(agentTLSKeyFileFlagName, "", "", agentTLSKeyFileFlagUsage)
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func getUserSetVars(cmd *cobra.Command, flagName, envKey string, isOptional bool) ([]string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetStringSlice(flagName)
		if err != nil {
			return nil, fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	var values []string

	if isSet {
		values = strings.Split(value, ",")
	}

	if isOptional || isSet {
		return values, nil
	}

	return nil, fmt.Errorf(" %s not set. "+
		"It must be set via either command line or environment variable", flagName)
}

func setLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)

		logger.Infof("logger level set to %s", logLevel)
	}

	return nil
}

func validateAuthorizationBearerToken(w http.ResponseWriter, r *http.Request, token string) bool {
	actHdr := r.Header.Get("Authorization")
	expHdr := "Bearer " + token

	if subtle.ConstantTimeCompare([]byte(actHdr), []byte(expHdr)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Unauthorised.\n")) // nolint:gosec,errcheck

		return false
	}

	return true
}

func authorizationMiddleware(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validateAuthorizationBearerToken(w, r, token) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

func startAgent(parameters *agentParameters) error {
	router, err := createRouter(parameters)
	if err != nil {
		return err
	}

	logger.Infof("Starting vcx agent rest on host [%s]", parameters.host)

	err = parameters.server.ListenAndServe(parameters.host, router, parameters.tlsCertFile, parameters.tlsKeyFile)
	if err != nil {
		return fmt.Errorf("failed to start vcx agent rest on port [%s], cause:  %w", parameters.host, err)
	}

	return nil
}

func createRouter(parameters *agentParameters) (http.Handler, error) {
	if parameters.host == "" {
		return nil, errMissingHost
	}

	cfg, err := loadConfig(parameters)
	if err != nil {
		return nil, err
	}

	logger.Warnf("ledger is in memory, objects written to it are lost on exit")

	opts := []vcx.Option{vcx.WithLedger(mockledger.New())}

	var agency transport.Transport

	if cfg.AgencyEndpoint == "" {
		agency = mocktransport.NewAgency()
		cfg.AgencyEndpoint = "http://" + parameters.host
		opts = append(opts, vcx.WithTransport(agency))
	}

	engine, err := createEngine(cfg, parameters.initTimeout, opts...)
	if err != nil {
		return nil, err
	}

	ctrlOpts := []controller.Opt{controller.WithWebhookURLs(parameters.webhookURLs...)}
	if parameters.syncOnly {
		ctrlOpts = append(ctrlOpts, controller.WithSyncOnly())
	}

	// get all HTTP REST API handlers available for controller API
	handlers, err := controller.GetRESTHandlers(engine, ctrlOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start vcx agent rest on port [%s], failed to get rest service api :  %w",
			parameters.host, err)
	}

	router := mux.NewRouter()

	if agency != nil {
		inbound, err := vcxhttp.NewInboundHandler(agency)
		if err != nil {
			return nil, err
		}

		router.PathPrefix("/agency/").Handler(inbound)
	}

	api := router.NewRoute().Subrouter()

	if parameters.token != "" {
		api.Use(authorizationMiddleware(parameters.token))
	}

	for _, handler := range handlers {
		api.HandleFunc(handler.Path(), handler.Handle()).Methods(handler.Method())
	}

	return cors.New(
		cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodHead},
			AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization"},
		},
	).Handler(router), nil
}

func loadConfig(parameters *agentParameters) (*vcx.Config, error) {
	cfg := &vcx.Config{}

	// keys given by flags may be left out of the file; vcx.New validates the result.
	if parameters.configFile != "" {
		data, err := os.ReadFile(parameters.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", parameters.configFile, err)
		}

		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", parameters.configFile, err)
		}
	}

	if parameters.institutionName != "" {
		cfg.InstitutionName = parameters.institutionName
	}

	if parameters.agencyEndpoint != "" {
		cfg.AgencyEndpoint = parameters.agencyEndpoint
	}

	return cfg, nil
}

func createEngine(cfg *vcx.Config, timeout uint64, opts ...vcx.Option) (*vcx.Engine, error) {
	var engine *vcx.Engine

	err := backoff.RetryNotify(
		func() error {
			var initErr error

			engine, initErr = vcx.New(context.Background(), cfg, opts...)
			switch vcxerr.KindOf(initErr) {
			case vcxerr.ValidationFailure, vcxerr.UnsupportedVersion:
				return backoff.Permanent(initErr)
			}

			return initErr
		},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), timeout),
		func(retryErr error, t time.Duration) {
			logger.Warnf("failed to initialize engine, will sleep for %s before trying again : %s", t, retryErr)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vcx engine: %w", err)
	}

	return engine, nil
}
