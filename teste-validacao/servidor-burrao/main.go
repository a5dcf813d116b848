// servidor-burrao é um upstream de mentira para validar o gateway na mão:
// responde 200 em todas as rotas da tabela de regras padrão.
package main

import (
	"encoding/json"
	"net/http"
	"os"

	"go.uber.org/zap"

	"middleware-gateway/internal/config"
)

func newMux(log *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	for _, rc := range config.DefaultRules() {
		pattern := string(rc.Method) + " " + rc.Path
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			log.Info("upstream hit",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("api_key", r.Header.Get("X-Api-Key")))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"endpoint": pattern, "status": "ok"})
		})
	}
	mux.HandleFunc("GET /showTela", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<h1>Tela do Sistema</h1><p>Requisição recebida com sucesso!</p>"))
	})
	return mux
}

func main() {
	log, _ := zap.NewDevelopment()
	defer func() { _ = log.Sync() }()

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}
	log.Info("servidor rodando", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, newMux(log)); err != nil {
		log.Fatal("erro ao subir o servidor", zap.Error(err))
	}
}
