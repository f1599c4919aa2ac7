package mocks

//go:generate mockgen -destination=./mock_procedure.go -package=mocks github.com/ProjectTradeAI/agentrader/internal/agent DecisionProcedure
//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/ProjectTradeAI/agentrader/internal/market DataSource
