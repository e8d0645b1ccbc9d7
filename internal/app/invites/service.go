// Package invites manages coordinator and judge invitations: issuing
// them, resending with fresh tokens, acceptance, cancellation, and
// removal. Invitation state lives on the user record; acceptance mirrors
// an entry onto the hackathon document.
package invites

import (
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	hackathonstore "github.com/dalemusser/hackhub/internal/app/store/hackathons"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/mailer"
)

// Service wires the invitation workflows.
type Service struct {
	client     *mongo.Client
	users      *userstore.Store
	hackathons *hackathonstore.Store
	teams      *teamstore.Store
	mail       *mailer.Mailer
	baseURL    string
	siteName   string
	log        *zap.Logger
}

// New builds a Service. baseURL is the external site URL used in accept
// links; log may be nil.
func New(db *mongo.Database, mail *mailer.Mailer, baseURL, siteName string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.L()
	}
	return &Service{
		client:     db.Client(),
		users:      userstore.New(db),
		hackathons: hackathonstore.New(db),
		teams:      teamstore.New(db),
		mail:       mail,
		baseURL:    baseURL,
		siteName:   siteName,
		log:        log,
	}
}
