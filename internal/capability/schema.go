package capability

// JSON schemas the Gemini capability implementations hold their own output
// to. A response that fails its schema is retried once with the validation
// errors echoed back to the model; a second failure surfaces as *Error.

const analysisSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["fit_score", "gaps", "strengths"],
  "additionalProperties": false,
  "properties": {
    "fit_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "gaps": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["requirement", "category"],
        "additionalProperties": false,
        "properties": {
          "requirement": {"type": "string", "minLength": 1},
          "category": {"type": "string"},
          "priority": {"type": "string"},
          "reason": {"type": "string"}
        }
      }
    },
    "strengths": {
      "type": "array",
      "items": {"type": "string"}
    }
  }
}`

const validationSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["addressed_gap_id", "resolution_summary"],
  "additionalProperties": false,
  "properties": {
    "addressed_gap_id": {"type": ["string", "null"]},
    "resolution_summary": {"type": ["string", "null"]}
  }
}`

const recommendationSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["verdict", "rationale", "action_items"],
  "additionalProperties": false,
  "properties": {
    "verdict": {
      "type": "string",
      "enum": ["strong_apply", "apply", "cautious_apply", "skip"]
    },
    "rationale": {"type": "string", "minLength": 1},
    "action_items": {
      "type": "array",
      "items": {"type": "string"}
    }
  }
}`
