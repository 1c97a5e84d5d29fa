package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/resolveai/api/internal/auth"
	"github.com/resolveai/api/internal/db"
	"github.com/resolveai/api/internal/employees"
	"github.com/resolveai/api/internal/repo"
)

// bootstrap cria as primeiras contas da instalação direto no banco.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

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
	case "admin":
		if err := runAdmin(ctx, repo.New(pool), args); err != nil {
			log.Fatal().Err(err).Msg("falha ao criar admin")
		}
	case "employee":
		if err := runEmployee(ctx, employees.NewService(employees.NewRepository(pool)), args); err != nil {
			log.Fatal().Err(err).Msg("falha ao criar funcionário")
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  bootstrap admin -name <nome> -email <email> -password <senha>
  bootstrap employee -name <nome> -cpf <cpf> -role <categoria> -password <senha>`)
}

func runAdmin(ctx context.Context, queries *repo.Queries, args []string) error {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	name := fs.String("name", "", "nome completo")
	email := fs.String("email", "", "e-mail de login")
	password := fs.String("password", "", "senha")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" || *email == "" || len(*password) < 6 {
		return fmt.Errorf("nome, e-mail e senha (mínimo 6 caracteres) são obrigatórios")
	}

	hash, err := auth.Hash(*password)
	if err != nil {
		return err
	}

	user, err := queries.CreateUser(ctx, *name, *email, repo.RoleAdmin, hash)
	if err != nil {
		return err
	}

	return printJSON(user)
}

func runEmployee(ctx context.Context, svc *employees.Service, args []string) error {
	fs := flag.NewFlagSet("employee", flag.ExitOnError)
	name := fs.String("name", "", "nome completo")
	cpf := fs.String("cpf", "", "CPF (11 dígitos)")
	role := fs.String("role", "", "categoria ou ADMINISTRATIVO")
	password := fs.String("password", "", "senha")
	if err := fs.Parse(args); err != nil {
		return err
	}

	employee, err := svc.Register(ctx, employees.RegisterInput{
		Name:            *name,
		CPF:             *cpf,
		Role:            *role,
		Password:        *password,
		ConfirmPassword: *password,
	})
	if err != nil {
		return err
	}

	return printJSON(employee)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
