package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/medicamp/internal/service"
)

// Services bundles what the router dispatches to.
type Services struct {
	Camps         *service.CampService
	Registrations *service.RegistrationService
	Payments      *service.PaymentService
	Feedback      *service.FeedbackService
	Organizers    *service.OrganizerService
	Participants  *service.ParticipantService
}

// NewRouter builds the full API. Listing camps, the top camps, approved
// feedback and /health are public; everything else needs a bearer token.
func NewRouter(svc Services, resolver PrincipalResolver, corsOrigin string) http.Handler {
	camps := NewCampHandler(svc.Camps)
	regs := NewRegistrationHandler(svc.Registrations)
	payments := NewPaymentHandler(svc.Payments)
	feedback := NewFeedbackHandler(svc.Feedback)
	organizers := NewOrganizerHandler(svc.Organizers)
	users := NewUserHandler(svc.Participants)

	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger)
	r.Use(CORS(corsOrigin))

	r.Get("/health", HealthCheck)
	r.Get("/camps", camps.List)
	r.Get("/camps/top", camps.Top)
	r.Get("/feedback/approved", feedback.Approved)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(resolver))

		// /camps and /feedback share their prefix with public routes, so they
		// are registered flat; mounting would shadow the public GETs.
		r.Post("/camps", camps.Create)
		r.Get("/camps/mine", camps.Mine)
		r.Get("/camps/{id}", camps.Get)
		r.Put("/camps/{id}", camps.Update)
		r.Delete("/camps/{id}", camps.Delete)

		r.Route("/registrations", func(r chi.Router) {
			r.Post("/", regs.Create)
			r.Get("/participant", regs.ListForParticipant)
			r.Get("/organizer", regs.ListForOrganizer)
			r.Get("/{id}", regs.Get)
			r.Delete("/{id}", regs.Cancel)
			r.Post("/{id}/confirm", regs.Confirm)
			r.Get("/{id}/pass.png", regs.Pass)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/checkout-session", payments.Checkout)
			r.Post("/confirm", payments.Confirm)
			r.Get("/history", payments.History)
		})

		r.Post("/feedback", feedback.Submit)
		r.Get("/feedback", feedback.Mine)
		r.Get("/feedback/manage", feedback.Manage)
		r.Get("/feedback/pending", feedback.Pending)
		r.Patch("/feedback/{id}/approve", feedback.Approve)
		r.Delete("/feedback/{id}", feedback.Delete)

		r.Get("/organizers/me", organizers.Me)
		r.Put("/organizers/me", organizers.UpdateMe)

		r.Get("/users/me", users.Me)
		r.Put("/users/me", users.UpdateMe)
	})

	return r
}
