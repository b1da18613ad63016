package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jinzhu/copier"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/b1id/id-portal/pkg/audit"
	pkgconfig "github.com/b1id/id-portal/pkg/config"
	"github.com/b1id/id-portal/pkg/keycloak"
	"github.com/b1id/id-portal/pkg/multirealm"
	"github.com/b1id/id-portal/pkg/notification"
	"github.com/b1id/id-portal/pkg/portal"
	"github.com/b1id/id-portal/pkg/realm"
)

type JwtConfig struct {
	JwtSecret string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
}

type AuditDbConfig struct {
	Enabled  bool   `env:"AUDIT_PG_ENABLED" env-default:"false"`
	Host     string `env:"AUDIT_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"AUDIT_PG_PORT" env-default:"5432"`
	Database string `env:"AUDIT_PG_DATABASE" env-default:"portal_db"`
	User     string `env:"AUDIT_PG_USER" env-default:"portal"`
	Password string `env:"AUDIT_PG_PASSWORD" env-default:"pwd"`
}

func (d AuditDbConfig) toDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

type Config struct {
	AppConfig     app.AppConfig
	JwtConfig     JwtConfig
	EmailConfig   pkgconfig.EmailConfig
	AuditDbConfig AuditDbConfig
	RealmsFile    string `env:"REALMS_CONFIG_FILE" env-default:"realms.yaml"`
	TOTPIssuer    string `env:"TOTP_ISSUER" env-default:"id-portal"`
}

func main() {

	config := Config{}
	cleanenv.ReadEnv(&config)

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	realmsConfig, err := pkgconfig.LoadRealmsConfig(config.RealmsFile)
	if err != nil {
		slog.Error("Failed loading realms config", "file", config.RealmsFile, "err", err)
		os.Exit(-1)
	}

	// audit trail
	auditRepo, err := newAuditRepository(config.AuditDbConfig)
	if err != nil {
		slog.Error("Failed creating audit repository", "err", err)
		os.Exit(-1)
	}
	auditService := audit.NewService(auditRepo)

	// realm resolver and per-realm admin clients
	resolver := realm.NewResolver(realmsConfig.DomainRealms, realmsConfig.DefaultRealm)
	router := multirealm.NewRouter(resolver, multirealm.WithAuditService(auditService))

	for _, realmConfig := range realmsConfig.Realms {
		var adminConfig keycloak.AdminConfig
		copier.Copy(&adminConfig, &realmConfig)
		router.AddRealm(realmConfig.Name, keycloak.NewAdminClient(adminConfig,
			keycloak.WithTOTPIssuer(config.TOTPIssuer),
		))
		slog.Info("Registered realm", "name", realmConfig.Name, "base_url", realmConfig.BaseURL)
	}

	// portal API
	portalOpts := []portal.Option{portal.WithAuditService(auditService)}
	if config.EmailConfig.Enabled() {
		notifier, err := notification.NewEmailNotifier(config.EmailConfig.ToSMTPConfig())
		if err != nil {
			slog.Error("Failed creating email notifier", "host", config.EmailConfig.Host, "err", err)
			os.Exit(-1)
		}
		portalOpts = append(portalOpts, portal.WithNotificationManager(notification.NewManager(notifier)))
	}
	portalHandle := portal.NewHandle(router, portalOpts...)

	tokenAuth := jwtauth.New("HS256", []byte(config.JwtConfig.JwtSecret), nil)

	server.R.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		r.Route("/api", func(r chi.Router) {
			portalHandle.RegisterRoutes(r)
		})
	})

	server.Run()

}

func newAuditRepository(config AuditDbConfig) (audit.Repository, error) {
	if !config.Enabled {
		return audit.NewAuditRepository("memory", audit.RepositoryConfig{})
	}

	pool, err := dbutils.NewDbPool(context.Background(), config.toDbConfig())
	if err != nil {
		return nil, err
	}

	repo, err := audit.NewAuditRepository("postgres", audit.RepositoryConfig{Pool: pool})
	if err != nil {
		return nil, err
	}
	if pg, ok := repo.(*audit.PostgresRepository); ok {
		if err := pg.Init(context.Background()); err != nil {
			return nil, err
		}
	}
	return repo, nil
}
