package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kalendo/calendar-backend/internal/database"
	"github.com/kalendo/calendar-backend/internal/model"
	"github.com/kalendo/calendar-backend/internal/recurrence"
	"go.uber.org/zap"
)

type Api struct {
	handler    http.Handler
	logger     *zap.SugaredLogger
	randSource io.Reader

	jwts          jwtManager
	refreshTokens refreshTokenRepository

	db    database.PGX
	users userRepository

	events    eventsService
	calendars calendarsService
	analytics analyticsService
	google    googleService
}

type jwtManager interface {
	CreateToken(id int64) (string, error)
	GetIdFromToken(token string) (int64, error)
}

type refreshTokenRepository interface {
	Add(ctx context.Context, session string, id int64) error
	Get(ctx context.Context, session string) (int64, error)
	Refresh(ctx context.Context, old, new string) error
	Delete(ctx context.Context, session string) error
}

type userRepository interface {
	CreateUser(ctx context.Context, q database.Queryable, user *model.UserCreate) (int64, error)
	GetUserByID(ctx context.Context, q database.Queryable, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, q database.Queryable, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, q database.Queryable, username string) (*model.User, error)
}

type eventsService interface {
	CreateEvent(ctx context.Context, info *model.EventCreate) (*model.Event, error)
	GetEventByID(ctx context.Context, id int64) (*model.Event, error)
	GetOccurrences(ctx context.Context, filter model.EventsFilter) ([]model.Occurrence, error)
	UpdateEvent(ctx context.Context, id int64, info *model.EventCreate) (*model.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	ModifyOccurrence(ctx context.Context, eventID int64, index int, fields recurrence.OverrideFields) error
	CancelOccurrence(ctx context.Context, eventID int64, index int) error
}

type calendarsService interface {
	CreateCalendar(ctx context.Context, info *model.CalendarCreate) (*model.Calendar, error)
	GetCalendarByID(ctx context.Context, id int64) (*model.Calendar, error)
	GetCalendars(ctx context.Context, userID int64) ([]*model.Calendar, error)
	DeleteCalendar(ctx context.Context, id int64) error
	ExportICS(ctx context.Context, calendarID int64) ([]byte, error)
}

type analyticsService interface {
	GetUserAnalytics(ctx context.Context, userID int64) (*model.Analytics, error)
}

type googleService interface {
	AuthURL(state string) string
	Connect(ctx context.Context, userID int64, authCode string) error
	Sync(ctx context.Context, userID, calendarID int64, from, to time.Time) (int, error)
}

func NewApi(
	logger *zap.SugaredLogger,
	randSource io.Reader,
	jwts jwtManager,
	refreshTokens refreshTokenRepository,
	db database.PGX,
	users userRepository,
	events eventsService,
	calendars calendarsService,
	analytics analyticsService,
	google googleService,
) (*Api, error) {
	a := &Api{
		logger:        logger,
		randSource:    randSource,
		jwts:          jwts,
		refreshTokens: refreshTokens,
		db:            db,
		users:         users,
		events:        events,
		calendars:     calendars,
		analytics:     analytics,
		google:        google,
	}
	a.setupHandler()

	return a, nil
}

func (a *Api) setupHandler() {
	middleware.DefaultLogger = func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a.logger.Debugw(r.URL.RequestURI(),
				"addr", r.RemoteAddr,
				"protocol", r.Proto,
				"method", r.Method,
			)
			next.ServeHTTP(w, r)
		})
	}

	r := chi.NewMux()

	r.Use(middleware.Logger, middleware.Recoverer, middleware.StripSlashes)
	r.NotFound(a.notFoundResponse)
	r.MethodNotAllowed(a.methodNotAllowedResponse)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", a.registerUserHandler)
		r.Post("/login", a.loginUserHandler)
		r.Post("/refresh", a.refreshTokenHandler)
		r.Post("/logout", a.logoutUserHandler)
	})

	r.With(a.auth).Route("/", func(r chi.Router) {
		r.With(a.userCtx).Get("/user", a.getUserHandler)

		r.Get("/timezones", a.getTimezonesHandler)
		r.Get("/analytics", a.getAnalyticsHandler)

		r.Route("/calendars", func(r chi.Router) {
			r.Get("/", a.getCalendarsHandler)
			r.Post("/", a.createCalendarHandler)

			r.With(a.calendarCtx).Route("/{calendarID}", func(r chi.Router) {
				r.Delete("/", a.deleteCalendarHandler)
				r.Get("/export", a.exportCalendarHandler)
				r.Get("/events", a.getCalendarOccurrencesHandler)
				r.Post("/events", a.createEventHandler)
			})
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", a.getOccurrencesHandler)

			r.With(a.eventCtx).Route("/{eventID}", func(r chi.Router) {
				r.Put("/", a.updateEventHandler)
				r.Delete("/", a.deleteEventHandler)
				r.Put("/occurrences/{index}", a.modifyOccurrenceHandler)
				r.Delete("/occurrences/{index}", a.cancelOccurrenceHandler)
			})
		})

		r.Route("/google", func(r chi.Router) {
			r.Get("/auth", a.googleAuthURLHandler)
			r.Post("/connect", a.googleConnectHandler)
			r.Post("/sync", a.googleSyncHandler)
		})
	})

	a.handler = r
}

func (a *Api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}
