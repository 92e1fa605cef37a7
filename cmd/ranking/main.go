package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/reclamacidade/internal/auth"
	"github.com/gestaozabele/reclamacidade/internal/cache"
	"github.com/gestaozabele/reclamacidade/internal/db"
	"github.com/gestaozabele/reclamacidade/internal/engagement"
	"github.com/gestaozabele/reclamacidade/internal/identity"
	"github.com/gestaozabele/reclamacidade/internal/util"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	ctx := context.Background()

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		log.Fatal().Msg("defina DB_DSN ou DATABASE_URL")
	}

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("não foi possível conectar ao banco")
	}
	defer pool.Close()

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "migrate":
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("falha ao aplicar schema")
		}
		fmt.Println("schema aplicado")
	case "seed-badges":
		err = withEngine(ctx, pool, func(engine *engagement.Service) error {
			badges, err := engine.SeedBadges(ctx)
			if err != nil {
				return err
			}
			return printJSON(badges)
		})
		if err != nil {
			log.Fatal().Err(err).Msg("falha ao registrar conquistas")
		}
	case "recompute":
		err = withEngine(ctx, pool, func(engine *engagement.Service) error {
			return runRecompute(ctx, engine, args)
		})
		if err != nil {
			log.Fatal().Err(err).Msg("falha ao recalcular ranking")
		}
	case "show":
		err = withEngine(ctx, pool, func(engine *engagement.Service) error {
			return runShow(ctx, engine, identity.NewRepository(pool), args)
		})
		if err != nil {
			log.Fatal().Err(err).Msg("falha ao consultar ranking")
		}
	case "token":
		if err := runToken(ctx, identity.NewRepository(pool), args); err != nil {
			log.Fatal().Err(err).Msg("falha ao emitir token")
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "ranking CLI")
	fmt.Fprintln(os.Stderr, "uso:")
	fmt.Fprintln(os.Stderr, "  ranking migrate")
	fmt.Fprintln(os.Stderr, "  ranking seed-badges")
	fmt.Fprintln(os.Stderr, "  ranking recompute --city cuiaba [--month 3 --year 2025]")
	fmt.Fprintln(os.Stderr, "  ranking show --city cuiaba [--month 3 --year 2025] [--limit 20]")
	fmt.Fprintln(os.Stderr, "  ranking show --cpf 52998224725 [--month 3 --year 2025]")
	fmt.Fprintln(os.Stderr, "  ranking token --cpf 52998224725 [--roles MANAGER]")
	fmt.Fprintln(os.Stderr, "  ranking token --service")
}

// withEngine monta o motor com cache Redis opcional (REDIS_URL) para que o
// recálculo invalide as leituras servidas pela API.
func withEngine(ctx context.Context, pool *pgxpool.Pool, fn func(*engagement.Service) error) error {
	loc, err := time.LoadLocation(envOr("RANKING_TZ", "UTC"))
	if err != nil {
		return fmt.Errorf("RANKING_TZ inválido: %w", err)
	}

	var rankingCache engagement.RankingCache
	if raw := strings.TrimSpace(os.Getenv("REDIS_URL")); raw != "" {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return fmt.Errorf("redis parse: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		rankingCache = cache.NewRankingCache(client, 0, log.Logger)
	}

	engine := engagement.NewService(engagement.NewPostgresStore(pool), rankingCache, nil, loc, log.Logger)
	return fn(engine)
}

type periodFlags struct {
	month *int
	year  *int
}

func addPeriodFlags(fs *flag.FlagSet) periodFlags {
	return periodFlags{
		month: fs.Int("month", 0, "mês (1-12), padrão mês corrente"),
		year:  fs.Int("year", 0, "ano, padrão ano corrente"),
	}
}

func (p periodFlags) resolve(engine *engagement.Service) (int, int) {
	month, year := engine.CurrentPeriod()
	if *p.month != 0 {
		month = *p.month
	}
	if *p.year != 0 {
		year = *p.year
	}
	return month, year
}

func runRecompute(ctx context.Context, engine *engagement.Service, args []string) error {
	fs := flag.NewFlagSet("recompute", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	city := fs.String("city", "", "cidade do ranking")
	period := addPeriodFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*city) == "" {
		return errors.New("city é obrigatório")
	}

	month, year := period.resolve(engine)
	entries, err := engine.RecomputeMonthlyRanking(ctx, *city, month, year)
	if err != nil {
		return err
	}
	fmt.Printf("%s %02d/%d: %d posições\n", util.NormalizeCity(*city), month, year, len(entries))
	return nil
}

func runShow(ctx context.Context, engine *engagement.Service, users *identity.Repository, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	city := fs.String("city", "", "cidade do ranking")
	cpf := fs.String("cpf", "", "CPF do cidadão para ver a própria posição")
	limit := fs.Int("limit", 20, "máximo de posições")
	period := addPeriodFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	month, year := period.resolve(engine)

	if *cpf != "" {
		user, err := users.FindByCPF(ctx, *cpf)
		if err != nil {
			return err
		}
		entry, err := engine.UserRanking(ctx, user.ID, month, year)
		if errors.Is(err, engagement.ErrNotFound) {
			fmt.Printf("%s sem posição em %02d/%d\n", user.Nome, month, year)
			return nil
		}
		if err != nil {
			return err
		}
		return printJSON(entry)
	}

	if strings.TrimSpace(*city) == "" {
		return errors.New("informe city ou cpf")
	}
	entries, err := engine.MonthlyRanking(ctx, *city, month, year, *limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("nenhuma posição calculada; rode recompute")
		return nil
	}
	return printJSON(entries)
}

func runToken(ctx context.Context, users *identity.Repository, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cpf := fs.String("cpf", "", "CPF do usuário")
	roles := fs.String("roles", "", "papéis separados por vírgula; padrão pelo cadastro")
	service := fs.Bool("service", false, "token de integração (SERVICE)")
	ttl := fs.Duration("ttl", time.Hour, "validade do token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if len(secret) < 32 {
		return errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}
	manager := auth.NewJWTManager(secret, *ttl)

	var (
		subject string
		granted []string
	)
	switch {
	case *service:
		subject = "00000000-0000-0000-0000-000000000001"
		granted = []string{auth.RoleService}
	case *cpf != "":
		user, err := users.FindByCPF(ctx, *cpf)
		if err != nil {
			return err
		}
		subject = user.ID.String()
		granted = []string{auth.RoleCitizen}
		if user.IsManager() {
			granted = append(granted, auth.RoleManager)
		}
	default:
		return errors.New("informe cpf ou service")
	}
	if *roles != "" {
		granted = nil
		for _, role := range strings.Split(*roles, ",") {
			if role = strings.ToUpper(strings.TrimSpace(role)); role != "" {
				granted = append(granted, role)
			}
		}
	}

	token, err := manager.Issue(subject, granted)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func envOr(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
