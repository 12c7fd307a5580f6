// Command platform-stub is a hardcoded stand-in for the consent platform
// API, for local development without platform credentials. It answers the
// four endpoints the service calls: geolocation, the experience catalog,
// served-notice records and preference submissions.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/google/uuid"
)

func main() {
	log.Println("WARNING: this is a STUB platform API for local testing only.")
	log.Println("All responses are hardcoded; no consent is actually recorded.")

	addr := os.Getenv("STUB_ADDR")
	if addr == "" {
		addr = ":9090"
	}
	country := os.Getenv("STUB_COUNTRY")
	if country == "" {
		country = "US"
	}
	location := os.Getenv("STUB_LOCATION")
	if location == "" {
		location = "en-US"
	}

	experienceRegion := os.Getenv("STUB_REGION")
	if experienceRegion == "" {
		experienceRegion = "us"
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /location", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"location":%q,"country":%q}`, location, country)
	})

	mux.HandleFunc("GET /privacy-experience", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		region := r.URL.Query().Get("region")
		if region != experienceRegion {
			// No experience configured there; the service treats this as
			// a region without notices, not an error.
			log.Printf("privacy-experience: no experience for region %q", region)
			w.Write([]byte(`{"items":[]}`))
			return
		}
		fmt.Fprintf(w, `{
			"items": [
				{
					"id": "stub-experience-1",
					"region": %q,
					"privacy_notices": [
						{
							"id": "notice-marketing",
							"notice_key": "marketing",
							"name": "Marketing",
							"description": "General marketing communications",
							"privacy_notice_history_id": "hist-marketing-1",
							"disabled": false,
							"consent_mechanism": "opt_in"
						},
						{
							"id": "notice-signup",
							"notice_key": "advertising_and_email_signup",
							"name": "Email signup",
							"description": "Advertising emails and newsletter signup",
							"privacy_notice_history_id": "hist-signup-1",
							"disabled": false,
							"consent_mechanism": "opt_in"
						}
					]
				}
			]
		}`, region)
	})

	mux.HandleFunc("PATCH /notices-served", func(w http.ResponseWriter, r *http.Request) {
		servedRef := "stub-served-" + uuid.NewString()
		log.Printf("notices-served: issuing reference %s", servedRef)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[{"served_notice_history_id":%q}]`, servedRef)
	})

	mux.HandleFunc("PATCH /privacy-preferences", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Method      string `json:"method"`
			Preferences []struct {
				Preference string `json:"preference"`
			} `json:"preferences"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			log.Printf("privacy-preferences: unreadable body: %v", err)
			http.Error(w, `{"detail":"invalid body"}`, http.StatusUnprocessableEntity)
			return
		}
		preference := ""
		if len(body.Preferences) > 0 {
			preference = body.Preferences[0].Preference
		}
		log.Printf("privacy-preferences: recorded %s via %s", preference, body.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	log.Printf("stub platform listening on %s (region %q)", addr, experienceRegion)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("stub platform failed: %v", err)
	}
}
