package model

import "time"

// Topic agrupa nós de aprendizado relacionados
type Topic struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Node é uma unidade de estudo dentro de um tópico
type Node struct {
	ID          string    `json:"id"`
	TopicID     string    `json:"topicId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Workflow é o grafo de aprendizado montado por um usuário
type Workflow struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Nodes       []WorkflowNode `json:"nodes"`
	Edges       []WorkflowEdge `json:"edges"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// WorkflowNode posiciona um nó dentro de um workflow
type WorkflowNode struct {
	NodeID      string  `json:"nodeId"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	PositionX   float64 `json:"positionX"`
	PositionY   float64 `json:"positionY"`
	SortOrder   int     `json:"sortOrder"`
}

// WorkflowEdge liga dois nós de um workflow. SourceTitle e TargetTitle
// são preenchidos na leitura pelo join com a tabela de nós.
type WorkflowEdge struct {
	ID               string `json:"id"`
	SourceNodeID     string `json:"sourceNodeId"`
	TargetNodeID     string `json:"targetNodeId"`
	SourceTitle      string `json:"sourceTitle,omitempty"`
	TargetTitle      string `json:"targetTitle,omitempty"`
	IsValid          *bool  `json:"isValid,omitempty"`
	ValidationReason string `json:"validationReason,omitempty"`
}

// NodePairValidation é o veredito persistido para um par ordenado de títulos
type NodePairValidation struct {
	SourceName     string    `json:"sourceName"`
	TargetName     string    `json:"targetName"`
	IsValid        bool      `json:"isValid"`
	Reason         string    `json:"reason"`
	Recommendation *string   `json:"recommendation,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ValidationVerdict é o resultado de uma validação de caminho
type ValidationVerdict struct {
	IsValid        bool   `json:"isValid"`
	Reason         string `json:"reason"`
	Recommendation string `json:"recommendation,omitempty"`
}

// NodeTimeEstimate é a estimativa de horas de estudo para um nó
type NodeTimeEstimate struct {
	NodeID         string  `json:"nodeId"`
	NodeTitle      string  `json:"nodeTitle"`
	EstimatedHours float64 `json:"estimatedHours"`
	Description    string  `json:"description"`
}

// WorkflowSchedule agrega as estimativas de um workflow
type WorkflowSchedule struct {
	TotalHours          float64            `json:"totalHours"`
	Nodes               []NodeTimeEstimate `json:"nodes"`
	SuggestedDailyHours float64            `json:"suggestedDailyHours"`
	TotalDays           int                `json:"totalDays"`
}

// CalendarEvent é uma sessão de estudo derivada do cronograma. Nunca é persistida.
type CalendarEvent struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	StartDate     time.Time `json:"startDate"`
	DurationHours float64   `json:"durationHours"`
}

// EndDate retorna o fim da sessão
func (e CalendarEvent) EndDate() time.Time {
	return e.StartDate.Add(time.Duration(e.DurationHours * float64(time.Hour)))
}

// MaterialPage é uma página de conteúdo de um material de estudo
type MaterialPage struct {
	MaterialID string `json:"materialId"`
	PageNumber int    `json:"pageNumber"`
	Title      string `json:"title,omitempty"`
	Content    string `json:"content"`
}

// QuizQuestion é a pergunta de múltipla escolha gerada para uma página
type QuizQuestion struct {
	ID           string    `json:"id"`
	MaterialID   string    `json:"materialId"`
	PageNumber   int       `json:"pageNumber"`
	Question     string    `json:"question"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"-"`
	Explanation  string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// QuizScore é a pontuação registrada em profiles.quiz_scores
type QuizScore struct {
	Score      int       `json:"score"`
	Selected   int       `json:"selected"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// QuizResult é a resposta de uma submissão
type QuizResult struct {
	Correct      bool   `json:"correct"`
	CorrectIndex int    `json:"correctIndex"`
	Explanation  string `json:"explanation,omitempty"`
}

// CalendarCredential guarda os tokens OAuth (cifrados) de um usuário
type CalendarCredential struct {
	UserID       string
	AccessToken  []byte
	RefreshToken []byte
	Expiry       time.Time
	UpdatedAt    time.Time
}

// Estados de uma exportação para o calendário
const (
	ImplementRunning   = "running"
	ImplementCompleted = "completed"
	ImplementFailed    = "failed"
)

// ImplementProgress é enviado ao WebSocket do usuário durante a exportação
type ImplementProgress struct {
	WorkflowID string `json:"workflowId"`
	Status     string `json:"status"`
	Created    int    `json:"created"`
	Total      int    `json:"total"`
	EventID    string `json:"eventId,omitempty"`
	Error      string `json:"error,omitempty"`
}
