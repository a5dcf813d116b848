// Package application orquestra os casos de uso sobre o domain: decidir se uma
// request consome cota (Service.Decide), consultar e zerar contadores
// (Service.Status / Service.Reset) e reservar vagas de concorrência.
//
// Não conhece net/http: quem traduz Decision em status code e headers são os
// adaptadores do pacote ratelimit e o servidor administrativo.
package application
