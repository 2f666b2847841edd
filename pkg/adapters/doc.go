// Package adapters предоставляет единый интерфейс удаленной таблицы.
//
// Архитектура:
//
//	adapters.Table      - контракт: GetAll, Get, Search, Insert, Update, Delete
//	adapters.Factory    - реестр backend по имени типа
//	airtable.Table      - реализация поверх Airtable REST API
//	memory.Table        - реализация в памяти процесса (тесты, --memory)
//
// Ошибки backend классифицируются сентинелами ErrNotFound, ErrRejected и
// ErrTransport. Пакет writer использует ErrRejected как единственный сигнал
// для поштучного fallback; ErrTransport возвращается вызывающему без fallback.
//
// Пример использования:
//
//	import (
//	    "github.com/ruslano69/tdtp-airtable/pkg/adapters"
//	    _ "github.com/ruslano69/tdtp-airtable/pkg/airtable"
//	)
//
//	cfg := adapters.DefaultConfig()
//	cfg.BaseID = "appXXXXXXXXXXXXXX"
//	cfg.APIKey = os.Getenv("AIRTABLE_API_KEY")
//	cfg.Table = "Experiments"
//
//	tbl, err := adapters.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	records, err := tbl.GetAll(ctx)
package adapters
