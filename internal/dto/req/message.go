package req

type EnqueueMessageRequest struct {
	Recipient   string         `json:"recipient" binding:"required,email"`
	TemplateKey string         `json:"template_key" binding:"required"`
	Payload     map[string]any `json:"payload"`
}

type ListMessagesRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=pending sending sent failed"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}
