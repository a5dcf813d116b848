// Package domain define contratos e tipos de domínio do rate limit por janela fixa.
//
// Aqui ficam a regra (Rule), o contador (Counter), a visão derivada (Status) e a
// classificação por limiares. Este pacote não depende de net/http nem de
// implementações concretas (memória, Redis), o que mantém as regras testáveis
// com testes de unidade puros.
package domain
