package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// SubjectFunc extrai o identificador do sujeito (usuário, API key, IP) da request.
// Retorna "" quando não consegue identificar.
type SubjectFunc func(r *http.Request) string

// DefaultSubjectFunc: header configurado -> primeiro IP do X-Forwarded-For (se
// confiável) -> host do RemoteAddr.
func DefaultSubjectFunc(keyHeader string, trustXFF bool) SubjectFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				ip := strings.TrimSpace(strings.Split(xff, ",")[0])
				if ip != "" {
					return ip
				}
			}
		}

		// fallback: RemoteAddr
		addr := strings.TrimSpace(r.RemoteAddr)
		host, _, err := net.SplitHostPort(addr)
		if err == nil && host != "" {
			return host
		}
		return addr
	}
}

// JWTSubject lê o claim "sub" de um bearer token HMAC assinado com secret.
// Tokens inválidos, expirados ou com outro algoritmo resultam em "".
func JWTSubject(secret []byte) SubjectFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	return func(r *http.Request) string {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			return ""
		}
		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

		claims := &jwt.RegisteredClaims{}
		_, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil {
			return ""
		}
		return strings.TrimSpace(claims.Subject)
	}
}

// ChainSubjects retorna o primeiro sujeito não vazio.
func ChainSubjects(fns ...SubjectFunc) SubjectFunc {
	return func(r *http.Request) string {
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if s := fn(r); s != "" {
				return s
			}
		}
		return ""
	}
}
