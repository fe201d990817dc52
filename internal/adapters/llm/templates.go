package llm

import (
	"fmt"

	"github.com/target/codegen-api/internal/domain/model"
)

// templateFiles returns the canned output for target. Unknown targets yield no files.
func templateFiles(prompt string, target model.Target) []model.GeneratedFile {
	switch target {
	case model.TargetFrontend:
		return []model.GeneratedFile{{Path: "src/App.tsx", Content: reactTemplate(prompt), Language: "tsx"}}
	case model.TargetBackend:
		return []model.GeneratedFile{{Path: "api/service.ts", Content: backendTemplate(prompt), Language: "typescript"}}
	case model.TargetSQL:
		return []model.GeneratedFile{{Path: "schema.sql", Content: sqlTemplate(prompt), Language: "sql"}}
	case model.TargetInfra:
		return []model.GeneratedFile{{Path: "infrastructure.yml", Content: infraTemplate(prompt), Language: "yaml"}}
	default:
		return []model.GeneratedFile{}
	}
}

func reactTemplate(prompt string) string {
	return fmt.Sprintf(`import React, { useState } from 'react';

function App() {
  const [data, setData] = useState([]);

  // Generated based on: %[1]s

  return (
    <div className="min-h-screen bg-gray-100 p-8">
      <div className="max-w-4xl mx-auto">
        <h1 className="text-3xl font-bold mb-8">Generated App</h1>
        <div className="bg-white rounded-lg shadow p-6">
          <p className="text-gray-600">
            This component was generated based on: "%[1]s"
          </p>
          {/* Add your implementation here */}
        </div>
      </div>
    </div>
  );
}

export default App;`, prompt)
}

func backendTemplate(prompt string) string {
	return fmt.Sprintf(`import { api } from "encore.dev/api";

interface Request {
  // Define based on: %[1]s
}

interface Response {
  // Define based on: %[1]s
}

// Generated API endpoint based on: %[1]s
export const handler = api<Request, Response>(
  { expose: true, method: "POST", path: "/api/generated" },
  async (req) => {
    // Implementation based on: %[1]s

    return {
      // Return response
    };
  }
);`, prompt)
}

func sqlTemplate(prompt string) string {
	return fmt.Sprintf(`-- Generated SQL schema based on: %s

CREATE TABLE generated_table (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Add indexes
CREATE INDEX idx_generated_table_name ON generated_table(name);
CREATE INDEX idx_generated_table_created_at ON generated_table(created_at);

-- Add any additional tables or constraints based on the prompt`, prompt)
}

func infraTemplate(prompt string) string {
	return fmt.Sprintf(`# Generated infrastructure configuration based on: %s

services:
  app:
    image: node:18
    ports:
      - "3000:3000"
    environment:
      - NODE_ENV=production

  database:
    image: postgres:15
    environment:
      - POSTGRES_DB=app
      - POSTGRES_USER=user
      - POSTGRES_PASSWORD=password
    volumes:
      - postgres_data:/var/lib/postgresql/data

volumes:
  postgres_data:`, prompt)
}
