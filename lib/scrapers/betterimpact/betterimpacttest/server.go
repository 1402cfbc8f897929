// Package betterimpacttest serves a fake of the scheduling site's login,
// opportunity and signup endpoints for tests.
package betterimpacttest

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
)

//go:embed testdata/*.html
var pages embed.FS

var templates = template.Must(template.ParseFS(pages, "testdata/*.html"))

const (
	Token         = "CfDJ8Token"
	sessionCookie = "BISession"
	sessionValue  = "authenticated"
)

type Shift struct {
	Id       string
	Label    string
	Openings int
	// TimeIntervalString returned when the shift is booked.
	Interval string
	// Full shifts reject every signup.
	Full bool
}

type Options struct {
	Username   string
	Password   string
	MemberId   string
	ActivityId string
	Guid       string
	Shifts     []Shift
	// OmitToken serves a login page without the verification token input.
	OmitToken bool
	// OmitMemberId serves an opportunity page without the member id input.
	OmitMemberId bool
	// MalformedSignup makes the signup endpoint answer with html.
	MalformedSignup bool
}

// Server records every signup it receives, in order.
type Server struct {
	*httptest.Server
	Options

	mu      sync.Mutex
	signups []url.Values
	logins  int
}

func NewServer(opts Options) *Server {
	s := &Server{Options: opts}
	mux := http.NewServeMux()
	mux.HandleFunc("/Login/Login", s.handleLogin)
	mux.HandleFunc("/Volunteer/Dashboard", s.handleDashboard)
	mux.HandleFunc("/Volunteer/Schedule/OpportunityDetails", s.handleOpportunity)
	mux.HandleFunc("/Volunteer/Schedule/SignupForShift", s.handleSignup)
	s.Server = httptest.NewServer(mux)
	return s
}

func (s *Server) Signups() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]url.Values, len(s.signups))
	copy(out, s.signups)
	return out
}

func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

func authenticated(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookie)
	return err == nil && cookie.Value == sessionValue
}

func render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := templates.ExecuteTemplate(w, name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type loginPage struct {
	Token  string
	Failed bool
}

func (s *Server) loginPage(failed bool) loginPage {
	return loginPage{Token: Token, Failed: failed}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if s.OmitToken {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(`<html><body><form><input name="username"/></form></body></html>`))
			return
		}
		render(w, "login.html", s.loginPage(false))
	case http.MethodPost:
		err := r.ParseForm()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.logins++
		s.mu.Unlock()

		if r.PostForm.Get("__RequestVerificationToken") != Token ||
			r.PostForm.Get("username") != s.Username ||
			r.PostForm.Get("password") != s.Password {
			render(w, "login.html", s.loginPage(true))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: sessionValue, Path: "/"})
		http.Redirect(w, r, "/Volunteer/Dashboard", http.StatusFound)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !authenticated(r) {
		render(w, "login.html", s.loginPage(false))
		return
	}
	render(w, "dashboard.html", loginPage{Token: Token})
}

type opportunityPage struct {
	MemberId   string
	ActivityId string
	Shifts     []Shift
}

func (s *Server) handleOpportunity(w http.ResponseWriter, r *http.Request) {
	if !authenticated(r) {
		render(w, "login.html", s.loginPage(false))
		return
	}
	if s.Guid != "" && r.URL.Query().Get("guid") != s.Guid {
		http.NotFound(w, r)
		return
	}

	page := opportunityPage{
		MemberId:   s.MemberId,
		ActivityId: s.ActivityId,
		Shifts:     s.Shifts,
	}
	if s.OmitMemberId {
		page.MemberId = ""
	}
	render(w, "opportunity.html", page)
}

type signupResponse struct {
	WasSuccessful      bool
	TimeIntervalString string
	Message            string
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.Header.Get("X-Requested-With") != "XMLHttpRequest" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !authenticated(r) || s.MalformedSignup {
		render(w, "login.html", s.loginPage(false))
		return
	}

	query := r.URL.Query()
	s.mu.Lock()
	s.signups = append(s.signups, query)
	s.mu.Unlock()

	res := signupResponse{Message: "Shift not found."}
	for _, shift := range s.Shifts {
		if shift.Id != query.Get("activityShiftId") {
			continue
		}
		if shift.Full ||
			query.Get("activityId") != s.ActivityId ||
			query.Get("organizationMemberId") != s.MemberId {
			res.Message = "This shift is full."
			break
		}
		res = signupResponse{
			WasSuccessful:      true,
			TimeIntervalString: shift.Interval,
			Message:            "You have been signed up.",
		}
		break
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(res)
}
