package server

// Данный сервер просто объединяет специфичные HTTP сервера, отвечающие за
// обработку конкретных сущностей.
type Server struct {
	BudgetServer
	DealServer
}

func NewServer(
	budgetServer BudgetServer,
	dealServer DealServer,
) Server {
	return Server{
		BudgetServer: budgetServer,
		DealServer:   dealServer,
	}
}
