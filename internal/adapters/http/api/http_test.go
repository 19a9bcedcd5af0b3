package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/beewell/momentum/internal/adapters/http/api"
	service "github.com/beewell/momentum/internal/app"
	"github.com/beewell/momentum/internal/domain/model"
)

// stubDeps implements api.Dependencies with overridable behavior per test.
type stubDeps struct {
	safeCalculate   func(userID, date string) service.CalcResult
	calculateAll    func(day time.Time, userIDs []string) (service.BatchReport, error)
	evaluateUser    func(userID string, day time.Time) (service.EvalReport, error)
	evaluateAll     func(day time.Time) (service.BatchReport, error)
	score           func(userID string, day time.Time) (model.DailyScore, error)
	notifications   func(userID string, limit int) ([]model.NotificationRecord, error)
	interventions   func(userID string, limit int) ([]model.InterventionRecord, error)
	health          func() (model.HealthReport, error)
	resolveError    func(id, notes string) error
	errorStatistics func(windowHours int) (model.ErrorStats, error)
	cleanupErrors   func() (int64, error)
	stats           func() map[string]interface{}
}

func (s *stubDeps) SafeCalculate(_ context.Context, userID, date string) service.CalcResult {
	return s.safeCalculate(userID, date)
}

func (s *stubDeps) CalculateAll(_ context.Context, day time.Time, userIDs []string) (service.BatchReport, error) {
	return s.calculateAll(day, userIDs)
}

func (s *stubDeps) EvaluateUser(_ context.Context, userID string, day time.Time) (service.EvalReport, error) {
	return s.evaluateUser(userID, day)
}

func (s *stubDeps) EvaluateAll(_ context.Context, day time.Time) (service.BatchReport, error) {
	return s.evaluateAll(day)
}

func (s *stubDeps) Score(_ context.Context, userID string, day time.Time) (model.DailyScore, error) {
	return s.score(userID, day)
}

func (s *stubDeps) Notifications(_ context.Context, userID string, limit int) ([]model.NotificationRecord, error) {
	return s.notifications(userID, limit)
}

func (s *stubDeps) Interventions(_ context.Context, userID string, limit int) ([]model.InterventionRecord, error) {
	return s.interventions(userID, limit)
}

func (s *stubDeps) Health(_ context.Context) (model.HealthReport, error) {
	return s.health()
}

func (s *stubDeps) ResolveError(_ context.Context, id, notes string) error {
	return s.resolveError(id, notes)
}

func (s *stubDeps) ErrorStatistics(_ context.Context, windowHours int) (model.ErrorStats, error) {
	return s.errorStatistics(windowHours)
}

func (s *stubDeps) CleanupErrors(_ context.Context) (int64, error) {
	return s.cleanupErrors()
}

func (s *stubDeps) GetStats(_ context.Context) map[string]interface{} {
	return s.stats()
}

func newTestServer(deps *stubDeps) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func getURL(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHandleCalculate(t *testing.T) {
	Convey("Given the calculate endpoint", t, func() {
		deps := &stubDeps{
			safeCalculate: func(userID, date string) service.CalcResult {
				score := model.DailyScore{UserID: userID, FinalScore: 68.5, MomentumState: model.StateSteady}
				return service.CalcResult{Success: true, Score: &score}
			},
		}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("A valid request returns the coded envelope", func() {
			resp := postJSON(t, srv.URL+"/v1/momentum/calculate",
				map[string]string{"user_id": "u-1", "date": "2026-08-20"})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var result service.CalcResult
			decode(t, resp, &result)
			So(result.Success, ShouldBeTrue)
			So(result.Score.FinalScore, ShouldEqual, 68.5)
		})

		Convey("A coded failure still travels as 200", func() {
			deps.safeCalculate = func(userID, date string) service.CalcResult {
				return service.CalcResult{ErrorCode: service.CodeInvalidUserID, ErrorMessage: "invalid user id"}
			}
			resp := postJSON(t, srv.URL+"/v1/momentum/calculate",
				map[string]string{"user_id": "nope"})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var result service.CalcResult
			decode(t, resp, &result)
			So(result.Success, ShouldBeFalse)
			So(result.ErrorCode, ShouldEqual, service.CodeInvalidUserID)
		})

		Convey("A missing user_id is a 400", func() {
			resp := postJSON(t, srv.URL+"/v1/momentum/calculate", map[string]string{})
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("GET is not served", func() {
			resp := getURL(t, srv.URL+"/v1/momentum/calculate")
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestHandleCalculateAll(t *testing.T) {
	Convey("Given the batch calculate endpoint", t, func() {
		var gotDay time.Time
		var gotUsers []string
		deps := &stubDeps{
			calculateAll: func(day time.Time, userIDs []string) (service.BatchReport, error) {
				gotDay = day
				gotUsers = userIDs
				return service.BatchReport{Date: model.FormatDate(day), TotalUsers: 3, Successful: 3}, nil
			},
		}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("An explicit date is passed through", func() {
			resp := postJSON(t, srv.URL+"/v1/momentum/calculate-all",
				map[string]string{"date": "2026-08-20"})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var report service.BatchReport
			decode(t, resp, &report)
			So(report.TotalUsers, ShouldEqual, 3)
			So(model.FormatDate(gotDay), ShouldEqual, "2026-08-20")
			So(gotUsers, ShouldBeEmpty)
		})

		Convey("An explicit user subset is passed through", func() {
			resp := postJSON(t, srv.URL+"/v1/momentum/calculate-all",
				map[string]any{"date": "2026-08-20", "user_ids": []string{"u-1", "u-2"}})
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(gotUsers, ShouldResemble, []string{"u-1", "u-2"})
		})

		Convey("A malformed date is a 400", func() {
			resp := postJSON(t, srv.URL+"/v1/momentum/calculate-all",
				map[string]string{"date": "next tuesday"})
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHandleGetScore(t *testing.T) {
	Convey("Given the score endpoint", t, func() {
		deps := &stubDeps{
			score: func(userID string, day time.Time) (model.DailyScore, error) {
				if day.IsZero() {
					return model.DailyScore{UserID: userID, FinalScore: 77}, nil
				}
				return model.DailyScore{}, model.ErrNotFound
			},
		}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("Omitting the date returns the latest score", func() {
			resp := getURL(t, srv.URL+"/v1/momentum/score?user_id=u-1")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var score model.DailyScore
			decode(t, resp, &score)
			So(score.FinalScore, ShouldEqual, 77)
		})

		Convey("An unknown day maps to 404", func() {
			resp := getURL(t, srv.URL+"/v1/momentum/score?user_id=u-1&date=2026-08-20")
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("A validation failure maps to 400", func() {
			deps.score = func(string, time.Time) (model.DailyScore, error) {
				return model.DailyScore{}, model.ErrValidation
			}
			resp := getURL(t, srv.URL+"/v1/momentum/score?user_id=nope")
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A missing user_id is a 400", func() {
			resp := getURL(t, srv.URL+"/v1/momentum/score")
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHandleEvaluate(t *testing.T) {
	Convey("Given the evaluate endpoint", t, func() {
		deps := &stubDeps{
			evaluateUser: func(userID string, day time.Time) (service.EvalReport, error) {
				return service.EvalReport{UserID: userID, RulesFired: []string{"score_drop"}, NotificationsCreated: 1}, nil
			},
			evaluateAll: func(day time.Time) (service.BatchReport, error) {
				return service.BatchReport{TotalUsers: 5, Successful: 5}, nil
			},
		}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("A user_id evaluates just that user", func() {
			resp := postJSON(t, srv.URL+"/v1/interventions/evaluate",
				map[string]string{"user_id": "u-1", "date": "2026-08-20"})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var report service.EvalReport
			decode(t, resp, &report)
			So(report.UserID, ShouldEqual, "u-1")
			So(report.RulesFired, ShouldContain, "score_drop")
		})

		Convey("No user_id fans out to everyone scored that day", func() {
			resp := postJSON(t, srv.URL+"/v1/interventions/evaluate",
				map[string]string{"date": "2026-08-20"})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var report service.BatchReport
			decode(t, resp, &report)
			So(report.TotalUsers, ShouldEqual, 5)
		})
	})
}

func TestHandleLists(t *testing.T) {
	Convey("Given the listing endpoints", t, func() {
		var gotLimit int
		deps := &stubDeps{
			interventions: func(userID string, limit int) ([]model.InterventionRecord, error) {
				gotLimit = limit
				return []model.InterventionRecord{{UserID: userID, Priority: model.PriorityHigh}}, nil
			},
			notifications: func(userID string, limit int) ([]model.NotificationRecord, error) {
				gotLimit = limit
				return []model.NotificationRecord{{UserID: userID, Title: "You've got this! 💪"}}, nil
			},
		}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("Interventions default the limit to 20", func() {
			resp := getURL(t, srv.URL+"/v1/interventions?user_id=u-1")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var records []model.InterventionRecord
			decode(t, resp, &records)
			So(len(records), ShouldEqual, 1)
			So(gotLimit, ShouldEqual, 20)
		})

		Convey("The limit is capped at 100", func() {
			resp := getURL(t, srv.URL+"/v1/notifications?user_id=u-1&limit=5000")
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(gotLimit, ShouldEqual, 100)
		})

		Convey("A bad limit is a 400", func() {
			resp := getURL(t, srv.URL+"/v1/notifications?user_id=u-1&limit=-3")
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHandleHealth(t *testing.T) {
	Convey("Given the health endpoint", t, func() {
		deps := &stubDeps{
			health: func() (model.HealthReport, error) {
				return model.HealthReport{Status: model.HealthHealthy}, nil
			},
		}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("A healthy system returns 200", func() {
			resp := getURL(t, srv.URL+"/v1/health")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var report model.HealthReport
			decode(t, resp, &report)
			So(report.Status, ShouldEqual, model.HealthHealthy)
		})

		Convey("A degraded system still returns 200", func() {
			deps.health = func() (model.HealthReport, error) {
				return model.HealthReport{Status: model.HealthDegraded}, nil
			}
			resp := getURL(t, srv.URL+"/v1/health")
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("A critical system returns 503", func() {
			deps.health = func() (model.HealthReport, error) {
				return model.HealthReport{Status: model.HealthCritical}, nil
			}
			resp := getURL(t, srv.URL+"/v1/health")
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestHandleErrorLog(t *testing.T) {
	Convey("Given the error-log endpoints", t, func() {
		deps := &stubDeps{
			errorStatistics: func(windowHours int) (model.ErrorStats, error) {
				return model.ErrorStats{Total: 4, WindowHours: windowHours, ByType: map[string]int{"calculation_error": 4}}, nil
			},
			resolveError: func(id, notes string) error {
				if id == "missing" {
					return model.ErrNotFound
				}
				return nil
			},
			cleanupErrors: func() (int64, error) { return 12, nil },
		}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("Stats pass the window through", func() {
			resp := getURL(t, srv.URL+"/v1/errors/stats?window_hours=6")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var stats model.ErrorStats
			decode(t, resp, &stats)
			So(stats.Total, ShouldEqual, 4)
			So(stats.WindowHours, ShouldEqual, 6)
		})

		Convey("A bad window is a 400", func() {
			resp := getURL(t, srv.URL+"/v1/errors/stats?window_hours=0")
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Resolving a known entry returns 200", func() {
			resp := postJSON(t, srv.URL+"/v1/errors/resolve",
				map[string]string{"id": "err-1", "notes": "fixed"})
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("Resolving an unknown entry returns 404", func() {
			resp := postJSON(t, srv.URL+"/v1/errors/resolve",
				map[string]string{"id": "missing"})
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("Resolving without an id is a 400", func() {
			resp := postJSON(t, srv.URL+"/v1/errors/resolve", map[string]string{})
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Cleanup reports the removed count", func() {
			resp := postJSON(t, srv.URL+"/v1/errors/cleanup", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var out map[string]int64
			decode(t, resp, &out)
			So(out["removed"], ShouldEqual, 12)
		})
	})
}

func TestHandleStats(t *testing.T) {
	Convey("Given the stats endpoint", t, func() {
		deps := &stubDeps{
			stats: func() map[string]interface{} {
				return map[string]interface{}{"started": true, "workers": 4}
			},
		}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("It returns the service snapshot", func() {
			resp := getURL(t, srv.URL+"/stats")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var out map[string]interface{}
			decode(t, resp, &out)
			So(out["started"], ShouldEqual, true)
		})
	})
}
