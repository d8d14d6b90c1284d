package createcampaign

import "phishbot/internal/common/validation"

// campaignSchema is checked before the one and only create call, so a
// malformed payload never reaches GoPhish.
var campaignSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["name", "template", "page", "smtp", "url", "launch_date", "groups"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "template": {"$ref": "#/definitions/ref"},
    "page": {"$ref": "#/definitions/ref"},
    "smtp": {"$ref": "#/definitions/ref"},
    "url": {"type": "string", "pattern": "^https?://"},
    "launch_date": {"type": "string", "format": "date-time"},
    "groups": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "targets"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "targets": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["first_name", "last_name", "email", "position"],
              "properties": {
                "email": {"type": "string", "pattern": "^[^@\\s]+@[^@\\s]+$"}
              }
            }
          }
        }
      }
    }
  },
  "definitions": {
    "ref": {
      "type": "object",
      "required": ["id", "name"],
      "properties": {
        "id": {"type": "integer", "minimum": 1},
        "name": {"type": "string", "minLength": 1}
      }
    }
  }
}`)
