package model

// Response representa a resposta padrão da API
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

// Meta contém metadados da resposta
type Meta struct {
	Total int `json:"total,omitempty"`
}

// ErrorResponse representa uma resposta de erro
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// CreateTopicRequest é o payload de criação de tópico
type CreateTopicRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

// CreateNodeRequest é o payload de criação de nó
type CreateNodeRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

// DuplicateResponse é retornado com 409 quando o título já existe no tópico
type DuplicateResponse struct {
	Success     bool         `json:"success"`
	IsDuplicate bool         `json:"isDuplicate"`
	Reason      string       `json:"reason"`
	SimilarNode *SimilarNode `json:"similarNode,omitempty"`
}

// SimilarNode referencia o nó existente considerado duplicado
type SimilarNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CreateWorkflowRequest é o payload de criação de workflow
type CreateWorkflowRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

// UpdateGraphRequest substitui nós e arestas de um workflow
type UpdateGraphRequest struct {
	Nodes []WorkflowNode `json:"nodes" binding:"dive"`
	Edges []WorkflowEdge `json:"edges" binding:"dive"`
}

// ValidatePathRequest é o payload de validação de caminho
type ValidatePathRequest struct {
	FromTitle  string `json:"fromTitle" binding:"required"`
	ToTitle    string `json:"toTitle" binding:"required"`
	FromNodeID string `json:"fromNodeId"`
	ToNodeID   string `json:"toNodeId"`
}

// ValidatePathResponse carrega o veredito e sua procedência
type ValidatePathResponse struct {
	Success        bool   `json:"success"`
	IsValid        bool   `json:"isValid"`
	Reason         string `json:"reason"`
	Recommendation string `json:"recommendation,omitempty"`
	FromDatabase   bool   `json:"fromDatabase"`
	FromCache      bool   `json:"fromCache"`
}

// EstimateNodeInput é um nó enviado inline para estimativa
type EstimateNodeInput struct {
	ID          string `json:"id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// EstimateRequest aceita um workflow ou uma lista de nós
type EstimateRequest struct {
	WorkflowID string              `json:"workflowId"`
	Nodes      []EstimateNodeInput `json:"nodes" binding:"dive"`
}

// ImplementRequest dispara a exportação do cronograma para o calendário
type ImplementRequest struct {
	AccessToken string  `json:"accessToken"`
	StartDate   string  `json:"startDate"`
	DailyHours  float64 `json:"dailyHours" binding:"gte=0,lte=24"`
}

// ImplementResponse lista os eventos criados no calendário
type ImplementResponse struct {
	Success       bool     `json:"success"`
	EventsCreated int      `json:"eventsCreated"`
	EventIDs      []string `json:"eventIds"`
}

// QuizSubmitRequest é a resposta do usuário a uma pergunta
type QuizSubmitRequest struct {
	MaterialID    string `json:"materialId" binding:"required"`
	PageNumber    int    `json:"pageNumber" binding:"min=1"`
	SelectedIndex *int   `json:"selectedIndex" binding:"required,min=0,max=3"`
}
