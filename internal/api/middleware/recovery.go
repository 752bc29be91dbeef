// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"
)

// Recovery is middleware that recovers from panics in an HTTP handler
// without taking the whole server down: the panicking request gets a 500
// and other requests keep being served. It only covers the handler's own
// goroutine; panics in the PTY supervisor or attach listener goroutines are
// not recovered here.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if id := mux.Vars(r)["id"]; id != "" {
					log.Printf("panic recovered (session=%s): %v\n%s", id, err, debug.Stack())
				} else {
					log.Printf("panic recovered: %v\n%s", err, debug.Stack())
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal server error"}`))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
