package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a registered dashboard", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		Convey("Then / serves the page", func() {
			req := httptest.NewRequest("GET", "/", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(w.Body.String(), ShouldContainSubstring, "/rankings/")
		})

		Convey("Then unknown assets are not found", func() {
			req := httptest.NewRequest("GET", "/some-asset", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a nil mux", t, func() {
		So(func() { Register(context.Background(), nil) }, ShouldPanic)
	})
}
