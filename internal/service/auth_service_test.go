package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/resolveai/api/internal/auth"
	"github.com/resolveai/api/internal/employees"
	"github.com/resolveai/api/internal/policy"
	"github.com/resolveai/api/internal/repo"
)

type fakeRedis struct {
	store map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{store: make(map[string]string)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.store[key] = fmt.Sprint(value)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if v, ok := f.store[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.store[k]; ok {
			delete(f.store, k)
			n++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(n)
	return cmd
}

type stubUsers struct {
	byID    map[uuid.UUID]repo.User
	byEmail map[string]repo.User
}

func newStubUsers() *stubUsers {
	return &stubUsers{byID: make(map[uuid.UUID]repo.User), byEmail: make(map[string]repo.User)}
}

func (s *stubUsers) add(user repo.User) {
	s.byID[user.ID] = user
	s.byEmail[user.Email] = user
}

func (s *stubUsers) GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return repo.User{}, repo.ErrNotFound
	}
	return u, nil
}

func (s *stubUsers) GetUserByEmail(ctx context.Context, email string) (repo.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return repo.User{}, repo.ErrNotFound
	}
	return u, nil
}

func (s *stubUsers) CreateUser(ctx context.Context, name, email, role, passwordHash string) (repo.User, error) {
	if _, ok := s.byEmail[email]; ok {
		return repo.User{}, repo.ErrConflict
	}
	u := repo.User{ID: uuid.New(), Name: name, Email: email, Role: role, PasswordHash: passwordHash}
	s.add(u)
	return u, nil
}

type stubEmployees struct {
	byID map[uuid.UUID]employees.Employee
}

func newStubEmployees() *stubEmployees {
	return &stubEmployees{byID: make(map[uuid.UUID]employees.Employee)}
}

func (s *stubEmployees) GetByID(ctx context.Context, id uuid.UUID) (employees.Employee, error) {
	e, ok := s.byID[id]
	if !ok {
		return employees.Employee{}, employees.ErrNotFound
	}
	return e, nil
}

func (s *stubEmployees) GetByCode(ctx context.Context, code int) (employees.Employee, error) {
	for _, e := range s.byID {
		if e.EmployeeCode == code {
			return e, nil
		}
	}
	return employees.Employee{}, employees.ErrNotFound
}

type fixture struct {
	svc      *AuthService
	users    *stubUsers
	emps     *stubEmployees
	redis    *fakeRedis
	citizen  repo.User
	admin    repo.User
	employee employees.Employee
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hash, err := auth.Hash("segredo1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	users := newStubUsers()
	citizen := repo.User{ID: uuid.New(), Name: "Cidadão", Email: "cidadao@mail.com", Role: repo.RoleUser, PasswordHash: hash}
	admin := repo.User{ID: uuid.New(), Name: "Admin", Email: "admin@pref.gov.br", Role: repo.RoleAdmin, PasswordHash: hash}
	users.add(citizen)
	users.add(admin)

	emps := newStubEmployees()
	employee := employees.Employee{
		ID:           uuid.New(),
		EmployeeCode: 3123456,
		Name:         "Funcionário",
		Role:         string(policy.CategoryColetaDeLixo),
		IsActive:     true,
		PasswordHash: hash,
	}
	emps.byID[employee.ID] = employee

	r := newFakeRedis()
	jwtMgr := auth.NewJWTManager("um-segredo-de-teste-bem-comprido-0123456789", time.Minute)
	svc := NewAuthService(users, emps, r, jwtMgr, time.Hour, time.Hour)

	return &fixture{svc: svc, users: users, emps: emps, redis: r, citizen: citizen, admin: admin, employee: employee}
}

func TestLoginRoutesByIdentifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.Login(ctx, "cidadao@mail.com", "segredo1")
	if err != nil {
		t.Fatalf("login por e-mail: %v", err)
	}
	if result.Kind != auth.KindUser || result.User == nil || result.Employee != nil {
		t.Fatalf("resultado de cidadão errado: %+v", result)
	}
	if result.RefreshToken == "" {
		t.Fatal("refresh token ausente")
	}

	result, err = f.svc.Login(ctx, "3123456", "segredo1")
	if err != nil {
		t.Fatalf("login por código: %v", err)
	}
	if result.Kind != auth.KindEmployee || result.Employee == nil || result.User != nil {
		t.Fatalf("resultado de funcionário errado: %+v", result)
	}

	result, err = f.svc.Login(ctx, "admin@pref.gov.br", "segredo1")
	if err != nil {
		t.Fatalf("login de admin: %v", err)
	}
	if result.Kind != auth.KindAdmin {
		t.Fatalf("admin deveria sair como kind admin: %+v", result)
	}
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Login(ctx, "cidadao@mail.com", "errada1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("senha errada: %v", err)
	}
	if _, err := f.svc.Login(ctx, "ninguem@mail.com", "segredo1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("conta inexistente: %v", err)
	}
	if _, err := f.svc.Login(ctx, "9999999", "segredo1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("código inexistente: %v", err)
	}

	disabled := f.employee
	disabled.IsActive = false
	f.emps.byID[disabled.ID] = disabled
	if _, err := f.svc.Login(ctx, "3123456", "segredo1"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("desativado deveria ser barrado: %v", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loginResult, err := f.svc.Login(ctx, "cidadao@mail.com", "segredo1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := f.svc.Refresh(ctx, auth.KindUser, loginResult.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == "" || refreshed.RefreshToken == loginResult.RefreshToken {
		t.Fatal("refresh deveria rotacionar o token")
	}

	// o token antigo foi consumido na rotação
	if _, err := f.svc.Refresh(ctx, auth.KindUser, loginResult.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("reuso deveria falhar: %v", err)
	}

	if _, err := f.svc.Refresh(ctx, auth.KindUser, "token-inventado"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("token desconhecido: %v", err)
	}
}

func TestRefreshEmployeeRechecksState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loginResult, err := f.svc.Login(ctx, "3123456", "segredo1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	disabled := f.employee
	disabled.IsActive = false
	f.emps.byID[disabled.ID] = disabled

	if _, err := f.svc.Refresh(ctx, auth.KindEmployee, loginResult.RefreshToken); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("refresh de desativado deveria falhar: %v", err)
	}
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.Register(ctx, "Novo Cidadão", "novo@mail.com", "segredo1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.Kind != auth.KindUser || result.User == nil || result.User.Role != repo.RoleUser {
		t.Fatalf("cadastro deveria sair como cidadão: %+v", result)
	}

	if _, err := f.svc.Register(ctx, "Outro", "novo@mail.com", "segredo1"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("e-mail repetido: %v", err)
	}
	if _, err := f.svc.Register(ctx, "", "x@mail.com", "segredo1"); !errors.Is(err, ErrInvalidRegistration) {
		t.Fatalf("sem nome: %v", err)
	}
	if _, err := f.svc.Register(ctx, "X", "x@mail.com", "123"); !errors.Is(err, ErrInvalidRegistration) {
		t.Fatalf("senha curta: %v", err)
	}
}

func TestAdminSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.svc.LoginAdmin(ctx, "cidadao@mail.com", "segredo1"); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("cidadão não entra no painel: %v", err)
	}
	if _, _, err := f.svc.LoginAdmin(ctx, "admin@pref.gov.br", "errada1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("senha errada: %v", err)
	}

	result, session, err := f.svc.LoginAdmin(ctx, "admin@pref.gov.br", "segredo1")
	if err != nil {
		t.Fatalf("login admin: %v", err)
	}
	if result.Kind != auth.KindAdmin || session == "" {
		t.Fatalf("sessão ausente: %+v", result)
	}

	user, err := f.svc.ValidateAdminSession(ctx, session)
	if err != nil || user.ID != f.admin.ID {
		t.Fatalf("sessão deveria validar: %v", err)
	}

	if err := f.svc.LogoutAdmin(ctx, session); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.svc.ValidateAdminSession(ctx, session); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("sessão revogada deveria falhar: %v", err)
	}
}

func TestResolveActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	claimsFor := func(kind, role, employeeRole string, subject uuid.UUID) *auth.Claims {
		return &auth.Claims{
			Kind:             kind,
			Role:             role,
			EmployeeRole:     employeeRole,
			RegisteredClaims: jwt.RegisteredClaims{Subject: subject.String()},
		}
	}

	actor, err := f.svc.ResolveActor(ctx, claimsFor(auth.KindUser, "USER", "", f.citizen.ID))
	if err != nil || actor.Kind != policy.KindCitizen {
		t.Fatalf("cidadão: %+v %v", actor, err)
	}

	actor, err = f.svc.ResolveActor(ctx, claimsFor(auth.KindAdmin, "ADMIN", "", f.admin.ID))
	if err != nil || actor.Kind != policy.KindAdmin {
		t.Fatalf("admin: %+v %v", actor, err)
	}

	actor, err = f.svc.ResolveActor(ctx, claimsFor(auth.KindEmployee, "EMPLOYEE", f.employee.Role, f.employee.ID))
	if err != nil || actor.Kind != policy.KindEmployee {
		t.Fatalf("funcionário: %+v %v", actor, err)
	}
	if len(actor.CategoryScope) != 1 || actor.CategoryScope[0] != policy.CategoryColetaDeLixo {
		t.Fatalf("escopo errado: %+v", actor.CategoryScope)
	}

	// o escopo vem do cargo atual no banco, não do token
	promoted := f.employee
	promoted.Role = policy.RoleAdministrativo
	f.emps.byID[promoted.ID] = promoted
	actor, err = f.svc.ResolveActor(ctx, claimsFor(auth.KindEmployee, "EMPLOYEE", f.employee.Role, f.employee.ID))
	if err != nil {
		t.Fatalf("funcionário promovido: %v", err)
	}
	if len(actor.CategoryScope) != len(policy.AllCategories) {
		t.Fatalf("escopo deveria vir do banco: %+v", actor.CategoryScope)
	}

	disabled := promoted
	disabled.IsActive = false
	f.emps.byID[disabled.ID] = disabled
	if _, err := f.svc.ResolveActor(ctx, claimsFor(auth.KindEmployee, "EMPLOYEE", f.employee.Role, f.employee.ID)); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("desativado falha fechado: %v", err)
	}

	if _, err := f.svc.ResolveActor(ctx, claimsFor(auth.KindUser, "USER", "", uuid.New())); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("conta sumida falha fechado: %v", err)
	}
}
