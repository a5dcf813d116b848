// Package ratelimit fornece adapters HTTP (net/http) para rate limit por janela fixa
// e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: regras, contadores, status/classificação e contratos (sem net/http)
//   - application: casos de uso (decisão allow/deny + retry-after, acquire/timeout)
//   - infra: implementações concretas (tabela em memória, Redis, token bucket,
//     semáforo, estatísticas)
//   - ratelimit (este pacote): middlewares HTTP + extração de sujeito + tradução para status/headers
//
// Fluxo no gateway:
//
//  1. Resolve a regra pelo método + path (requests sem regra passam)
//  2. Extrai o sujeito (JWT sub, header, XFF, IP)
//  3. Chama a camada application para obter a decisão
//  4. Se bloqueado, responde 429 com Retry-After; se o backend falhar, 503
//  5. Se permitido, chama o próximo handler (ex: reverse proxy)
package ratelimit
