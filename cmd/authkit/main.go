package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/authkit/internal/auth"
	"github.com/dropDatabas3/authkit/internal/cache"
	"github.com/dropDatabas3/authkit/internal/config"
	"github.com/dropDatabas3/authkit/internal/email"
	"github.com/dropDatabas3/authkit/internal/httpapi"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/rate"
	"github.com/dropDatabas3/authkit/internal/security/password"
	"github.com/dropDatabas3/authkit/internal/session"
	"github.com/dropDatabas3/authkit/internal/store"
	"github.com/dropDatabas3/authkit/internal/store/fs"
	"github.com/dropDatabas3/authkit/internal/store/memory"
	"github.com/dropDatabas3/authkit/internal/store/pg"
	"github.com/dropDatabas3/authkit/internal/token"
	"github.com/dropDatabas3/authkit/internal/verify"
)

var version = "dev"

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// openStore elige el backend por driver: memory | fs | postgres.
func openStore(ctx context.Context, driver string) (store.UserStore, func(), error) {
	switch driver {
	case "", "memory":
		return memory.New(), func() {}, nil
	case "fs":
		root := envOr("AUTHKIT_FS_ROOT", "./data")
		st, err := fs.New(root)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	case "postgres":
		dsn := os.Getenv("AUTHKIT_PG_DSN")
		if dsn == "" {
			return nil, nil, fmt.Errorf("falta AUTHKIT_PG_DSN para el driver postgres")
		}
		st, err := pg.New(ctx, dsn, pg.Config{})
		if err != nil {
			return nil, nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("migraciones: %w", err)
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("driver de store desconocido: %q", driver)
	}
}

// buildNotifier arma el notifier de email. Sin SMTP configurado cae al log
// (desarrollo).
func buildNotifier(appName string) email.Notifier {
	host := os.Getenv("AUTHKIT_SMTP_HOST")
	if host == "" {
		logger.L().Warn("SMTP sin configurar: los códigos salen por log")
		return email.LogNotifier{}
	}
	sender := email.NewSMTPSender(
		host,
		envInt("AUTHKIT_SMTP_PORT", 587),
		envOr("AUTHKIT_SMTP_FROM", "no-reply@localhost"),
		os.Getenv("AUTHKIT_SMTP_USER"),
		os.Getenv("AUTHKIT_SMTP_PASS"),
	)
	tpls, err := loadTemplates()
	if err != nil {
		logger.L().Warn("templates de email inválidos, usando los default", logger.Err(err))
		tpls = nil
	}
	return email.NewTemplateNotifier(appName, sender, tpls)
}

func loadTemplates() (*email.Templates, error) {
	dir := os.Getenv("AUTHKIT_EMAIL_TEMPLATES_DIR")
	if dir == "" {
		return nil, nil
	}
	return email.LoadTemplates(dir)
}

// buildLimiter: redis si hay addr; si no, fixed-window sobre el
// cache.Client compartido del proceso.
func buildLimiter(cfg config.RateLimit, kv cache.Client) rate.Limiter {
	rcfg := rate.Config{Max: cfg.Max, Window: cfg.Window, BlockDuration: cfg.BlockDuration}
	if addr := os.Getenv("AUTHKIT_REDIS_ADDR"); addr != "" {
		client := rdb.NewClient(&rdb.Options{
			Addr:     addr,
			Password: os.Getenv("AUTHKIT_REDIS_PASSWORD"),
			DB:       envInt("AUTHKIT_REDIS_DB", 0),
		})
		return rate.NewRedisLimiter(client, "authkit:rl:", rcfg)
	}
	return rate.NewKVLimiter(kv, rcfg)
}

func buildCache() cache.Client {
	ccfg := cache.Config{Driver: "memory", Prefix: "authkit:"}
	if addr := os.Getenv("AUTHKIT_REDIS_ADDR"); addr != "" {
		host, port := addr, 6379
		if i := strings.LastIndex(addr, ":"); i > 0 {
			host = addr[:i]
			if p, err := strconv.Atoi(addr[i+1:]); err == nil {
				port = p
			}
		}
		ccfg = cache.Config{
			Driver:   "redis",
			Host:     host,
			Port:     port,
			Password: os.Getenv("AUTHKIT_REDIS_PASSWORD"),
			DB:       envInt("AUTHKIT_REDIS_DB", 0),
			Prefix:   "authkit:",
		}
	}
	c, err := cache.New(ccfg)
	if err != nil {
		logger.L().Warn("cache redis no disponible, usando memoria", logger.Err(err))
		return cache.NewMemory("authkit:")
	}
	return c
}

func buildServices(st store.UserStore, cfg config.Config, notifier email.Notifier) (*auth.Service, *verify.Service, *session.Service, error) {
	access, err := token.NewCodec(cfg.JWT.Secret, cfg.JWT.Algorithm, "authkit", cfg.JWT.ExpiresIn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("access codec: %w", err)
	}
	refresh, err := token.NewCodec(cfg.RefreshToken.Secret, cfg.JWT.Algorithm, "authkit", cfg.RefreshToken.ExpiresIn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("refresh codec: %w", err)
	}

	sessions := session.NewService(session.Deps{
		Store:          st,
		Access:         access,
		Refresh:        refresh,
		Rotation:       cfg.RefreshToken.Rotation,
		ReuseDetection: cfg.RefreshToken.ReuseDetection,
	})
	policy := password.FromConfig(cfg.PasswordPolicy)
	authSvc := auth.NewService(auth.Deps{
		Store:    st,
		Sessions: sessions,
		Policy:   policy,
	})
	verifySvc := verify.NewService(verify.Deps{
		Store:    st,
		Notifier: notifier,
		Policy:   policy,
	})
	return authSvc, verifySvc, sessions, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		// sin .env: seguimos con el entorno del sistema
		_ = err
	}

	var (
		configPath  = envOr("AUTHKIT_CONFIG", "")
		storeDriver = envOr("AUTHKIT_STORE_DRIVER", "memory")
		addr        = envOr("AUTHKIT_ADDR", ":8080")
		logEnv      = envOr("AUTHKIT_ENV", "dev")
		logLevel    = envOr("AUTHKIT_LOG_LEVEL", "info")
		appName     = envOr("AUTHKIT_APP_NAME", "authkit")
	)

	root := &cobra.Command{
		Use:           "authkit",
		Short:         "Servicio de autenticación: tokens, verificación de email y reseteo de contraseña",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", configPath, "ruta del YAML de configuración (env AUTHKIT_CONFIG)")
	root.PersistentFlags().StringVar(&storeDriver, "store", storeDriver, "backend de usuarios: memory|fs|postgres (env AUTHKIT_STORE_DRIVER)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta la API HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init(logger.Config{Env: logEnv, Level: logLevel, ServiceName: appName, Version: version})
			defer logger.Sync()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := config.Init(cfg); err != nil {
				return err
			}

			ctx := cmd.Context()
			st, closeStore, err := openStore(ctx, storeDriver)
			if err != nil {
				return err
			}
			defer closeStore()

			authSvc, verifySvc, _, err := buildServices(st, cfg, buildNotifier(appName))
			if err != nil {
				return err
			}

			cacheClient := buildCache()
			defer cacheClient.Close()

			handler := httpapi.NewRouter(httpapi.RouterDeps{
				Auth:    authSvc,
				Verify:  verifySvc,
				Session: cfg.Session,
				Limiter: buildLimiter(cfg.RateLimit, cacheClient),
				Cache:   cacheClient,
			})
			srv := httpapi.NewServer(httpapi.ServerOptions{Addr: addr}, handler)
			return srv.Run(ctx)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", addr, "dirección de escucha (env AUTHKIT_ADDR)")

	var adminName, adminEmail, adminPassword string
	createAdminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Crea un usuario admin directo contra el store (ya verificado)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init(logger.Config{Env: logEnv, Level: logLevel, ServiceName: appName, Version: version})
			defer logger.Sync()

			if adminEmail == "" || adminPassword == "" {
				return fmt.Errorf("faltan --email y/o --password")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			policy := password.FromConfig(cfg.PasswordPolicy)
			if ok, reasons := policy.Validate(adminPassword); !ok {
				return fmt.Errorf("password no cumple la política: %s", strings.Join(reasons, ", "))
			}

			ctx := cmd.Context()
			st, closeStore, err := openStore(ctx, storeDriver)
			if err != nil {
				return err
			}
			defer closeStore()

			hash, err := password.Hash(password.DefaultParams, adminPassword)
			if err != nil {
				return err
			}
			u, err := st.CreateUser(ctx, &store.User{
				Name:         adminName,
				Email:        strings.ToLower(strings.TrimSpace(adminEmail)),
				PasswordHash: hash,
				Role:         store.RoleAdmin,
				IsVerified:   true,
			})
			if err != nil {
				return err
			}
			fmt.Printf("admin creado: id=%s email=%s\n", u.ID, u.Email)
			return nil
		},
	}
	createAdminCmd.Flags().StringVar(&adminName, "name", "Admin", "nombre del admin")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "email del admin")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "password del admin")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("authkit", version)
		},
	}

	root.AddCommand(serveCmd, createAdminCmd, versionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
