package httpserver

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type Options struct {
	HTTPAddr  string
	HTTPSAddr string
	Handler   http.Handler
}

func generateSelfSignedCert(hosts ...string) (tls.Certificate, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"Uptime Dashboard"},
		},
		DNSNames:  hosts,
		NotBefore: time.Now(),
		NotAfter:  time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:  x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
		},
		BasicConstraintsValid: true,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}

	certPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: derBytes,
	})
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	})

	return tls.X509KeyPair(certPEM, keyPEM)
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
}

// Run serves the dashboard on the plain HTTP address and, when set, on an
// HTTPS address with a self-signed certificate. It blocks until ctx is
// cancelled or a listener fails, then shuts every server down.
func Run(ctx context.Context, logger *logrus.Logger, opts Options) error {
	if opts.HTTPAddr == "" && opts.HTTPSAddr == "" {
		return errors.New("no listen address configured")
	}

	var servers []*http.Server
	errCh := make(chan error, 2)

	if opts.HTTPAddr != "" {
		httpServer := newServer(opts.HTTPAddr, opts.Handler)
		servers = append(servers, httpServer)
		go func() {
			logger.WithField("addr", opts.HTTPAddr).Info("Starting HTTP server")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	if opts.HTTPSAddr != "" {
		cert, err := generateSelfSignedCert("localhost")
		if err != nil {
			return fmt.Errorf("generate self-signed certificate: %w", err)
		}
		httpsServer := newServer(opts.HTTPSAddr, opts.Handler)
		httpsServer.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		servers = append(servers, httpsServer)
		go func() {
			logger.WithField("addr", opts.HTTPSAddr).Info("Starting HTTPS server")
			if err := httpsServer.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("https server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down servers")
	case runErr = <-errCh:
		logger.WithError(runErr).Error("Server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).WithField("addr", srv.Addr).Warn("Server shutdown error")
		}
	}
	return runErr
}
