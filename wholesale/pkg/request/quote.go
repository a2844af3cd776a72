package request

type Customer struct {
	Name    string `validate:"required,max=120" json:"name"`
	Company string `validate:"max=120"          json:"company"`
	City    string `validate:"required,max=80"  json:"city"`
	Phone   string `validate:"required,max=30"  json:"phone"`
}
