package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/resolveai/api/internal/policy"
)

// ErrInvalidToken cobre assinatura inválida, token malformado ou expirado.
var ErrInvalidToken = errors.New("token inválido")

// Tipos de ator carregados no claim "kind". O payload é discriminado:
// cada kind tem seu conjunto obrigatório de claims, validado no parse.
const (
	KindUser     = "user"
	KindAdmin    = "admin"
	KindEmployee = "employee"
)

// Claims representa as informações presentes em um JWT de acesso.
type Claims struct {
	Kind         string `json:"kind"`
	Role         string `json:"role"`
	EmployeeRole string `json:"employeeRole,omitempty"`
	jwt.RegisteredClaims
}

// SubjectUUID interpreta o subject como UUID da conta.
func (c *Claims) SubjectUUID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// JWTManager encapsula geração e validação de tokens.
type JWTManager struct {
	secret    []byte
	accessTTL time.Duration
}

// NewJWTManager cria o gerenciador com segredo e TTL configurados.
func NewJWTManager(secret string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), accessTTL: accessTTL}
}

// GenerateUserToken emite token para cidadão ou admin.
func (m *JWTManager) GenerateUserToken(subject uuid.UUID, role string) (string, error) {
	kind := KindUser
	if role == "ADMIN" {
		kind = KindAdmin
	}
	return m.generate(Claims{Kind: kind, Role: role}, subject)
}

// GenerateEmployeeToken emite token para funcionário com o cargo embutido.
func (m *JWTManager) GenerateEmployeeToken(subject uuid.UUID, employeeRole string) (string, error) {
	return m.generate(Claims{Kind: KindEmployee, Role: "EMPLOYEE", EmployeeRole: employeeRole}, subject)
}

func (m *JWTManager) generate(claims Claims, subject uuid.UUID) (string, error) {
	now := time.Now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseAndValidate verifica assinatura, expiração e a forma do payload.
// O claim set é validado de forma exaustiva por kind: nada de campos
// opcionais inspecionados mais adiante na requisição.
func (m *JWTManager) ParseAndValidate(tokenString string) (*Claims, error) {
	tokenString = CleanToken(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if err := validateClaims(claims); err != nil {
		return nil, err
	}

	return claims, nil
}

func validateClaims(claims *Claims) error {
	if strings.TrimSpace(claims.Subject) == "" {
		return ErrInvalidToken
	}
	if _, err := claims.SubjectUUID(); err != nil {
		return ErrInvalidToken
	}

	switch claims.Kind {
	case KindUser:
		if claims.Role != "USER" {
			return ErrInvalidToken
		}
	case KindAdmin:
		if claims.Role != "ADMIN" {
			return ErrInvalidToken
		}
	case KindEmployee:
		if claims.Role != "EMPLOYEE" || !policy.IsValidEmployeeRole(claims.EmployeeRole) {
			return ErrInvalidToken
		}
	default:
		return ErrInvalidToken
	}

	if claims.Kind != KindEmployee && claims.EmployeeRole != "" {
		return ErrInvalidToken
	}

	return nil
}

// CleanToken remove ruído comum antes da verificação: aspas de token
// stringificado e prefixo "Bearer " redundante. Higiene de entrada,
// não fronteira de segurança.
func CleanToken(raw string) string {
	t := strings.TrimSpace(raw)

	if len(t) >= 2 {
		if (t[0] == '"' && t[len(t)-1] == '"') || (t[0] == '\'' && t[len(t)-1] == '\'') {
			t = strings.TrimSpace(t[1 : len(t)-1])
		}
	}

	if len(t) >= 7 && strings.EqualFold(t[:7], "bearer ") {
		t = strings.TrimSpace(t[7:])
	}

	return t
}
