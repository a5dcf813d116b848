// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - CounterTable: contadores de janela fixa em memória, shardados por murmur3,
//     com lock por contador e limpeza periódica (janitor)
//   - RedisCounterStore: a mesma semântica em Redis, atômica via script Lua
//   - BucketStore: token bucket por chave usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para limite de concorrência
//   - Memory/Redis/KafkaStatsStore: estatísticas de decisões
package infra
