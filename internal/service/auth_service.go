package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/resolveai/api/internal/auth"
	"github.com/resolveai/api/internal/employees"
	"github.com/resolveai/api/internal/policy"
	"github.com/resolveai/api/internal/repo"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrAccountDisabled indica conta de funcionário desativada.
	ErrAccountDisabled = errors.New("conta desativada")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
	// ErrNotAdmin indica conta sem papel de administrador.
	ErrNotAdmin = errors.New("acesso negado")
	// ErrEmailTaken indica e-mail já cadastrado.
	ErrEmailTaken = errors.New("e-mail já cadastrado")
)

type userRepository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error)
	GetUserByEmail(ctx context.Context, email string) (repo.User, error)
	CreateUser(ctx context.Context, name, email, role, passwordHash string) (repo.User, error)
}

type employeeDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (employees.Employee, error)
	GetByCode(ctx context.Context, code int) (employees.Employee, error)
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra autenticação, sessões e a resolução de ator.
type AuthService struct {
	users      userRepository
	employees  employeeDirectory
	redis      redisCommander
	jwt        *auth.JWTManager
	refreshTTL time.Duration
	sessionTTL time.Duration
}

// NewAuthService cria novo serviço.
func NewAuthService(users userRepository, emps employeeDirectory, redisClient redisCommander, jwtMgr *auth.JWTManager, refreshTTL, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		employees:  emps,
		redis:      redisClient,
		jwt:        jwtMgr,
		refreshTTL: refreshTTL,
		sessionTTL: sessionTTL,
	}
}

// JWT expõe gerenciador de JWT (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	Kind         string           `json:"kind"`
	AccessToken  string           `json:"token"`
	RefreshToken string           `json:"refreshToken,omitempty"`
	User         *UserProfile     `json:"user,omitempty"`
	Employee     *EmployeeProfile `json:"employee,omitempty"`
}

// UserProfile descreve cidadão ou admin autenticado.
type UserProfile struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

// EmployeeProfile descreve funcionário autenticado.
type EmployeeProfile struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	EmployeeCode int       `json:"employeeCode"`
}

// Login autentica pelo identificador unificado: com "@" trata como
// e-mail de cidadão/admin; só dígitos trata como código de funcionário.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if strings.Contains(identifier, "@") {
		return s.loginUser(ctx, identifier, password)
	}
	return s.loginEmployee(ctx, identifier, password)
}

func (s *AuthService) loginUser(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login: usuário não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		log.Warn().Msg("login: senha inválida")
		return nil, ErrInvalidCredentials
	}

	return s.issueUserTokens(ctx, user)
}

func (s *AuthService) loginEmployee(ctx context.Context, identifier, password string) (*LoginResult, error) {
	digits := employees.OnlyDigits(identifier)
	if digits == "" {
		return nil, ErrInvalidCredentials
	}
	code, err := strconv.Atoi(digits)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	employee, err := s.employees.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, employees.ErrNotFound) {
			log.Warn().Msg("login: funcionário não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !employee.IsActive {
		return nil, ErrAccountDisabled
	}

	ok, err := auth.Verify(password, employee.PasswordHash)
	if err != nil || !ok {
		log.Warn().Msg("login: senha de funcionário inválida")
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateEmployeeToken(employee.ID, employee.Role)
	if err != nil {
		return nil, err
	}

	rawRefresh, err := s.persistRefresh(ctx, auth.KindEmployee, employee.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Kind:         auth.KindEmployee,
		AccessToken:  token,
		RefreshToken: rawRefresh,
		Employee: &EmployeeProfile{
			ID:           employee.ID,
			Name:         employee.Name,
			Role:         employee.Role,
			EmployeeCode: employee.EmployeeCode,
		},
	}, nil
}

// LoginAdmin autentica especificamente contas ADMIN e devolve, além dos
// tokens, o valor opaco da sessão de navegador (cookie admin_session).
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*LoginResult, string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", ErrNotAdmin
		}
		return nil, "", err
	}

	if user.Role != repo.RoleAdmin {
		return nil, "", ErrNotAdmin
	}

	ok, err := auth.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, "", ErrInvalidCredentials
	}

	result, err := s.issueUserTokens(ctx, user)
	if err != nil {
		return nil, "", err
	}

	session, err := s.createAdminSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	return result, session, nil
}

// ErrInvalidRegistration indica payload de cadastro incompleto.
var ErrInvalidRegistration = errors.New("nome, e-mail e senha (mínimo 6 caracteres) são obrigatórios")

// Register cria conta de cidadão e já autentica.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*LoginResult, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || !strings.Contains(email, "@") || len(password) < 6 {
		return nil, ErrInvalidRegistration
	}

	hash, err := auth.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, name, email, repo.RoleUser, hash)
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return s.issueUserTokens(ctx, user)
}

func (s *AuthService) issueUserTokens(ctx context.Context, user repo.User) (*LoginResult, error) {
	token, err := s.jwt.GenerateUserToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	kind := auth.KindUser
	if user.Role == repo.RoleAdmin {
		kind = auth.KindAdmin
	}

	rawRefresh, err := s.persistRefresh(ctx, kind, user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Kind:         kind,
		AccessToken:  token,
		RefreshToken: rawRefresh,
		User: &UserProfile{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		},
	}, nil
}

func (s *AuthService) persistRefresh(ctx context.Context, kind string, subject uuid.UUID) (string, error) {
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return "", err
	}

	key := auth.RefreshRedisKey(kind, hash)
	if err := s.redis.Set(ctx, key, subject.String(), s.refreshTTL).Err(); err != nil {
		return "", err
	}
	return raw, nil
}

// Refresh troca refresh token por tokens novos, revalidando o estado da
// conta: funcionário desativado ou conta removida derrubam a sessão.
func (s *AuthService) Refresh(ctx context.Context, kind, rawToken string) (*LoginResult, error) {
	if rawToken == "" {
		return nil, ErrRefreshInvalid
	}

	hash := auth.HashRefreshToken(rawToken)
	key := auth.RefreshRedisKey(kind, hash)

	subjectStr, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	subject, err := uuid.Parse(subjectStr)
	if err != nil {
		return nil, ErrRefreshInvalid
	}

	// rotação: o token usado deixa de valer imediatamente
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return nil, err
	}

	switch kind {
	case auth.KindUser, auth.KindAdmin:
		user, err := s.users.GetUserByID(ctx, subject)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrRefreshInvalid
			}
			return nil, err
		}
		return s.issueUserTokens(ctx, user)
	case auth.KindEmployee:
		employee, err := s.employees.GetByID(ctx, subject)
		if err != nil {
			if errors.Is(err, employees.ErrNotFound) {
				return nil, ErrRefreshInvalid
			}
			return nil, err
		}
		if !employee.IsActive {
			return nil, ErrAccountDisabled
		}
		token, err := s.jwt.GenerateEmployeeToken(employee.ID, employee.Role)
		if err != nil {
			return nil, err
		}
		rawRefresh, err := s.persistRefresh(ctx, auth.KindEmployee, employee.ID)
		if err != nil {
			return nil, err
		}
		return &LoginResult{
			Kind:         auth.KindEmployee,
			AccessToken:  token,
			RefreshToken: rawRefresh,
			Employee: &EmployeeProfile{
				ID:           employee.ID,
				Name:         employee.Name,
				Role:         employee.Role,
				EmployeeCode: employee.EmployeeCode,
			},
		}, nil
	}
	return nil, ErrRefreshInvalid
}

func (s *AuthService) createAdminSession(ctx context.Context, userID uuid.UUID) (string, error) {
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return "", err
	}

	key := auth.AdminSessionRedisKey(hash)
	if err := s.redis.Set(ctx, key, userID.String(), s.sessionTTL).Err(); err != nil {
		return "", err
	}
	return raw, nil
}

// ValidateAdminSession confere o cookie opaco contra o Redis e o papel
// atual da conta. Sessão é revogável: logout apaga a chave.
func (s *AuthService) ValidateAdminSession(ctx context.Context, raw string) (repo.User, error) {
	if strings.TrimSpace(raw) == "" {
		return repo.User{}, ErrNotAdmin
	}

	key := auth.AdminSessionRedisKey(auth.HashRefreshToken(raw))
	subjectStr, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return repo.User{}, ErrNotAdmin
		}
		return repo.User{}, err
	}

	subject, err := uuid.Parse(subjectStr)
	if err != nil {
		return repo.User{}, ErrNotAdmin
	}

	user, err := s.users.GetUserByID(ctx, subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return repo.User{}, ErrNotAdmin
		}
		return repo.User{}, err
	}
	if user.Role != repo.RoleAdmin {
		return repo.User{}, ErrNotAdmin
	}
	return user, nil
}

// LogoutAdmin revoga a sessão do painel.
func (s *AuthService) LogoutAdmin(ctx context.Context, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	key := auth.AdminSessionRedisKey(auth.HashRefreshToken(raw))
	return s.redis.Del(ctx, key).Err()
}

// ResolveActor carrega o estado autoritativo da identidade e produz o
// ator normalizado. É esta checagem que efetivamente aplica a
// desativação de funcionário: o token não é revogado no servidor.
func (s *AuthService) ResolveActor(ctx context.Context, claims *auth.Claims) (policy.Actor, error) {
	subject, err := claims.SubjectUUID()
	if err != nil {
		return policy.Actor{}, auth.ErrInvalidToken
	}

	switch claims.Kind {
	case auth.KindEmployee:
		employee, err := s.employees.GetByID(ctx, subject)
		if err != nil {
			if errors.Is(err, employees.ErrNotFound) {
				return policy.Actor{}, repo.ErrNotFound
			}
			return policy.Actor{}, err
		}
		if !employee.IsActive {
			return policy.Actor{}, ErrAccountDisabled
		}
		return policy.Actor{
			Kind:          policy.KindEmployee,
			ID:            employee.ID,
			CategoryScope: policy.ScopeForRole(employee.Role),
		}, nil
	case auth.KindUser, auth.KindAdmin:
		user, err := s.users.GetUserByID(ctx, subject)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return policy.Actor{}, repo.ErrNotFound
			}
			return policy.Actor{}, err
		}
		kind := policy.KindCitizen
		if user.Role == repo.RoleAdmin {
			kind = policy.KindAdmin
		}
		return policy.Actor{Kind: kind, ID: user.ID}, nil
	}
	return policy.Actor{}, auth.ErrInvalidToken
}

// Me devolve o perfil atual do ator autenticado.
func (s *AuthService) Me(ctx context.Context, claims *auth.Claims) (*LoginResult, error) {
	subject, err := claims.SubjectUUID()
	if err != nil {
		return nil, auth.ErrInvalidToken
	}

	switch claims.Kind {
	case auth.KindEmployee:
		employee, err := s.employees.GetByID(ctx, subject)
		if err != nil {
			if errors.Is(err, employees.ErrNotFound) {
				return nil, repo.ErrNotFound
			}
			return nil, err
		}
		if !employee.IsActive {
			return nil, ErrAccountDisabled
		}
		return &LoginResult{
			Kind: auth.KindEmployee,
			Employee: &EmployeeProfile{
				ID:           employee.ID,
				Name:         employee.Name,
				Role:         employee.Role,
				EmployeeCode: employee.EmployeeCode,
			},
		}, nil
	default:
		user, err := s.users.GetUserByID(ctx, subject)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, repo.ErrNotFound
			}
			return nil, err
		}
		kind := auth.KindUser
		if user.Role == repo.RoleAdmin {
			kind = auth.KindAdmin
		}
		return &LoginResult{
			Kind: kind,
			User: &UserProfile{
				ID:    user.ID,
				Name:  user.Name,
				Email: user.Email,
				Role:  user.Role,
			},
		}, nil
	}
}
