package routes

import (
	"github.com/gin-gonic/gin"

	appAuth "github.com/yigit/univote/internal/app/auth"
	"github.com/yigit/univote/internal/app/controllers"
	"github.com/yigit/univote/internal/middleware"
	"github.com/yigit/univote/internal/pkg/websocket"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Auth       *controllers.AuthController
	Ballots    *controllers.BallotController
	Results    *controllers.ResultsController
	Candidates *controllers.CandidateController
	Voters     *controllers.VoterController
	Admin      *controllers.AdminController
	Live       *websocket.Handler
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	v1 := router.Group("/api/v1")

	v1.GET("/health", h.Results.Health)
	v1.GET("/election/status", h.Results.ElectionStatus)

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/voters/register", h.Auth.RegisterVoter)
		auth.POST("/voters/login", h.Auth.LoginVoter)
		auth.POST("/candidates/login", h.Auth.LoginCandidate)
		auth.POST("/admins/login", h.Auth.LoginAdmin)
		auth.POST("/refresh", h.Auth.RefreshToken)
	}

	// --- Public results ---
	results := v1.Group("/results")
	{
		results.GET("", h.Results.GetResults)
		results.GET("/offices/:office", h.Results.GetOfficeResults)
		if h.Live != nil {
			results.GET("/live", h.Live.HandleConnection)
		}
	}

	candidates := v1.Group("/candidates")
	{
		candidates.POST("/apply", h.Candidates.Apply)
		candidates.GET("/office/:office", h.Candidates.ListByOffice)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	ballots := authenticated.Group("/ballots")
	{
		ballots.POST("", authMiddleware.Authorize(appAuth.ObjBallots, appAuth.ActCast), h.Ballots.Cast)
		ballots.GET("/status", authMiddleware.Authorize(appAuth.ObjBallots, appAuth.ActCast), h.Ballots.Status)
	}

	voters := authenticated.Group("/voters")
	voters.Use(authMiddleware.Authorize(appAuth.ObjVoterProfile, appAuth.ActRead))
	{
		voters.GET("/me", h.Voters.Me)
		voters.PUT("/me", h.Voters.UpdateMe)
	}

	candidateSelf := authenticated.Group("/candidates/me")
	candidateSelf.Use(authMiddleware.Authorize(appAuth.ObjCandidateProfile, appAuth.ActRead))
	{
		candidateSelf.GET("", h.Candidates.Me)
		candidateSelf.POST("/photo", h.Candidates.UploadPhoto)
	}

	// --- Admin routes ---
	admin := authenticated.Group("/admin")
	{
		admin.GET("/dashboard", authMiddleware.Authorize(appAuth.ObjDashboard, appAuth.ActRead), h.Admin.Dashboard)
		admin.GET("/participation", authMiddleware.Authorize(appAuth.ObjDashboard, appAuth.ActRead), h.Admin.Participation)
		admin.GET("/export", authMiddleware.Authorize(appAuth.ObjExport, appAuth.ActRead), h.Admin.Export)

		adminBallots := admin.Group("/ballots")
		{
			adminBallots.GET("", authMiddleware.Authorize(appAuth.ObjBallots, appAuth.ActRead), h.Admin.BallotHistory)
			adminBallots.POST("/:id/invalidate", authMiddleware.Authorize(appAuth.ObjBallots, appAuth.ActWrite), h.Admin.InvalidateBallot)
		}

		election := admin.Group("/election")
		election.Use(authMiddleware.Authorize(appAuth.ObjElection, appAuth.ActWrite))
		{
			election.POST("/open", h.Admin.OpenVoting)
			election.POST("/close", h.Admin.CloseVoting)
			election.PUT("/session", h.Admin.SetSession)
			election.POST("/recount", h.Admin.Recount)
			election.POST("/reset", h.Admin.Reset)
		}

		adminCandidates := admin.Group("/candidates")
		{
			adminCandidates.GET("", authMiddleware.Authorize(appAuth.ObjCandidates, appAuth.ActRead), h.Candidates.List)
			adminCandidates.GET("/stats", authMiddleware.Authorize(appAuth.ObjCandidates, appAuth.ActRead), h.Candidates.Stats)

			review := adminCandidates.Group("/:id")
			review.Use(authMiddleware.Authorize(appAuth.ObjCandidates, appAuth.ActWrite))
			{
				review.PUT("/approve", h.Candidates.Approve)
				review.PUT("/reject", h.Candidates.Reject)
				review.PUT("/active", h.Candidates.SetActive)
				review.DELETE("", h.Candidates.Delete)
			}
		}

		adminVoters := admin.Group("/voters")
		{
			adminVoters.GET("", authMiddleware.Authorize(appAuth.ObjVoters, appAuth.ActRead), h.Voters.List)
			adminVoters.GET("/stats", authMiddleware.Authorize(appAuth.ObjVoters, appAuth.ActRead), h.Voters.Stats)
			adminVoters.PUT("/:id/deactivate", authMiddleware.Authorize(appAuth.ObjVoters, appAuth.ActWrite), h.Voters.Deactivate)
			adminVoters.PUT("/:id/activate", authMiddleware.Authorize(appAuth.ObjVoters, appAuth.ActWrite), h.Voters.Activate)
		}

		admin.POST("/admins", authMiddleware.Authorize(appAuth.ObjAdmins, appAuth.ActWrite), h.Admin.CreateAdmin)
	}
}
