package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/EricSciullo/POE-Core-Manager/pkg/lib"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/session"
)

const (
	defaultAddress = "localhost:50051"
	stopGrace      = time.Second

	// ServiceSession is SERVING while a live game process is monitored.
	ServiceSession = "coremgr.Session"
	// ServiceLoading is SERVING while the game is considered to be loading.
	ServiceLoading = "coremgr.Loading"

	envTLSKey    = "COREMGR_TLS_KEY"
	envTLSCert   = "COREMGR_TLS_CERT"
	envCATLSCert = "COREMGR_CA_TLS_CERT"
)

// GRPCServer exposes the session state through the standard gRPC health service.
type GRPCServer struct {
	lis    net.Listener
	s      *grpc.Server
	health *health.Server
}

// NewGRPCServer listens on addr. It requires client certificates (mTLS) when
// COREMGR_TLS_KEY, COREMGR_TLS_CERT and COREMGR_CA_TLS_CERT are all set and
// serves plaintext when none are.
func NewGRPCServer(addr string) (*GRPCServer, error) {
	if strings.TrimSpace(addr) == "" {
		addr = defaultAddress
	}

	creds, err := serverCredentials()
	if err != nil {
		return nil, err
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	var opts []grpc.ServerOption
	if creds != nil {
		opts = append(opts, grpc.Creds(creds))
	}
	s := grpc.NewServer(opts...)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceSession, healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceLoading, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	return &GRPCServer{lis: lis, s: s, health: hs}, nil
}

func serverCredentials() (credentials.TransportCredentials, error) {
	keyPEM, certPEM, caPEM, ok, err := tlsEnv()
	if err != nil || !ok {
		return nil, err
	}

	cert, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to load server key pair: %w", err)
	}

	caPool := x509.NewCertPool()
	if ok := caPool.AppendCertsFromPEM([]byte(caPEM)); !ok {
		return nil, fmt.Errorf("failed to append CA certificate to pool")
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    caPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS13,
	}), nil
}

// tlsEnv reads the PEM material. ok is false when none of it is set.
func tlsEnv() (keyPEM, certPEM, caPEM string, ok bool, err error) {
	keyPEM = os.Getenv(envTLSKey)
	certPEM = os.Getenv(envTLSCert)
	caPEM = os.Getenv(envCATLSCert)

	set := 0
	for _, v := range []string{keyPEM, certPEM, caPEM} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	switch set {
	case 0:
		return "", "", "", false, nil
	case 3:
		return keyPEM, certPEM, caPEM, true, nil
	default:
		return "", "", "", false, fmt.Errorf("incomplete TLS environment; set all of %s, %s, %s or none", envTLSKey, envTLSCert, envCATLSCert)
	}
}

// Follow mirrors session events into health statuses until events is closed.
func (g *GRPCServer) Follow(events <-chan session.Event) {
	for ev := range events {
		applyEvent(g.health, ev)
	}
}

func applyEvent(hs *health.Server, ev session.Event) {
	hs.SetServingStatus(ServiceSession, servingStatus(ev.Attached()))
	hs.SetServingStatus(ServiceLoading, servingStatus(ev.Attached() && ev.State == lib.LoadStateLoading))
}

func servingStatus(serving bool) healthpb.HealthCheckResponse_ServingStatus {
	if serving {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// Serve starts serving gRPC on the configured listener.
func (g *GRPCServer) Serve() error {
	return g.s.Serve(g.lis)
}

// Addr returns the network address the server is bound to.
func (g *GRPCServer) Addr() net.Addr { return g.lis.Addr() }

// Stop marks every service NOT_SERVING and gracefully stops the server.
// Health Watch streams never finish on their own, so in-flight RPCs are
// cancelled once stopGrace has elapsed.
func (g *GRPCServer) Stop() {
	g.health.Shutdown()

	done := make(chan struct{})
	go func() {
		g.s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(stopGrace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		g.s.Stop()
		<-done
	}
}
