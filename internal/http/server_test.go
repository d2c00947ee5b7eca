package httpserver

import (
	"context"
	"crypto/x509"
	"testing"
	"time"

	"github.com/sdko-org/uptime-dashboard/internal/logging"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSelfSignedCert(t *testing.T) {
	Convey("Given a generated certificate", t, func() {
		cert, err := generateSelfSignedCert("localhost")
		So(err, ShouldBeNil)

		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		So(err, ShouldBeNil)
		So(leaf.DNSNames, ShouldResemble, []string{"localhost"})
		So(leaf.Subject.Organization, ShouldResemble, []string{"Uptime Dashboard"})
		So(leaf.NotAfter.After(time.Now().Add(300*24*time.Hour)), ShouldBeTrue)
	})
}

func TestRun(t *testing.T) {
	Convey("Given no listen address", t, func() {
		err := Run(context.Background(), logging.Discard(), Options{})
		So(err, ShouldNotBeNil)
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Run(ctx, logging.Discard(), Options{HTTPAddr: "127.0.0.1:0"})
		So(err, ShouldBeNil)
	})
}
