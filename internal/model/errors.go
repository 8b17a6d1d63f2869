package model

import "errors"

var (
	// ErrRateLimited indica que uma API externa retornou 429
	ErrRateLimited = errors.New("rate limit excedido na API externa")

	// ErrUnauthorized indica token inválido
	ErrUnauthorized = errors.New("token inválido ou expirado")

	// ErrNotFound indica recurso não encontrado
	ErrNotFound = errors.New("recurso não encontrado")

	// ErrTimeout indica timeout na requisição
	ErrTimeout = errors.New("timeout na requisição externa")

	// ErrInvalidResponse indica resposta inválida da API
	ErrInvalidResponse = errors.New("resposta inválida da API externa")

	// ErrForbidden indica acesso a recurso de outro usuário
	ErrForbidden = errors.New("acesso negado ao recurso")

	// ErrNoCalendarToken indica que o usuário não possui token do Google Calendar
	ErrNoCalendarToken = errors.New("nenhum token do Google Calendar disponível")
)
