// Copyright 2025 The flexband Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

const (
	// CCEEDatastoreEndpoint is the CCEE open data datastore search endpoint
	CCEEDatastoreEndpoint = "https://dadosabertos.ccee.org.br/api/3/action/datastore_search"

	// CCEEConsumptionResourceID identifies the current-year consumption dataset
	CCEEConsumptionResourceID = "c88d04a6-fe42-413b-b7bf-86e390494fb0"
)

// Column names of the CCEE consumption record set. The same field set is
// carried by both the yearly archives and the live API.
const (
	colCompany   = "NOME_EMPRESARIAL"
	colCity      = "CIDADE"
	colState     = "ESTADO_UF"
	colSubmarket = "SUBMERCADO"
	colUnitCode  = "SIGLA_PARCELA_CARGA"
	colCNPJ      = "CNPJ_CARGA"
	colMonth     = "MES_REFERENCIA"
	colCapacity  = "CAPACIDADE_CARGA"

	// colRowID is a datastore artifact carried by API records. It is never
	// semantically meaningful and is excluded from canonical records.
	colRowID = "id"
)

// knownConsumptionColumns maps the consumption-total column across source
// generations, checked in order. The substring heuristic in deriver.go is
// only a fallback for schemas not listed here.
var knownConsumptionColumns = []string{
	"CONSUMO_TOTAL_MWH",
	"CONSUMO_TOTAL",
	"CONSUMO_TOTAL_MWM",
}

// headOfficeBranchCode is the CNPJ branch-code suffix reserved for a
// company's head office.
const headOfficeBranchCode = "0001"
