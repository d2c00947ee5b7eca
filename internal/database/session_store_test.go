package database

import (
	"testing"
	"time"

	"github.com/sdko-org/uptime-dashboard/internal/session"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSessionRecord(t *testing.T) {
	Convey("Given a bound session", t, func() {
		expires := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
		sess := &session.Session{
			Username:     "user_1",
			IDToken:      "id",
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresAt:    expires,
			Binding:      "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8",
		}

		rec := recordFromSession("default", sess)

		Convey("Then the row is keyed and keeps the binding hash", func() {
			So(rec.Key, ShouldEqual, "default")
			So(rec.Binding, ShouldEqual, sess.Binding)
			So(sessionFromRecord(rec), ShouldResemble, sess)
		})
	})
}
