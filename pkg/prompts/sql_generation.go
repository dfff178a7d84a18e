package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
)

// DescribeSchema renders each table as "Table '<name>' with columns: a, b"
// and joins the tables with ". ". Tables are emitted in sorted order so the
// same schema always yields the same prompt.
func DescribeSchema(schema models.SchemaMap) string {
	names := schema.TableNames()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("Table '%s' with columns: %s", name, strings.Join(schema[name], ", ")))
	}
	return strings.Join(parts, ". ")
}

// BuildSQLGenerationPrompt creates the single user message sent to the model.
// dialect may be empty; when set, a syntax hint is appended on its own line.
func BuildSQLGenerationPrompt(question string, schema models.SchemaMap, dialect string) string {
	var prompt strings.Builder

	prompt.WriteString("Convert to SQL query. Return only the SQL query without any markdown or comments. ")
	fmt.Fprintf(&prompt, "Schema: %s. Query: %s", DescribeSchema(schema), question)

	if dialect != "" {
		fmt.Fprintf(&prompt, "\nUse %s syntax.", dialect)
	}

	return prompt.String()
}
