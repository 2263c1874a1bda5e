package classifier

import "github.com/xaenox/sentia/internal/models"

// Example is a labelled training utterance.
type Example struct {
	Text  string
	Label models.Emotion
}

var seedCorpus = []Example{
	{"Me siento muy feliz con mi trabajo", models.Positive},
	{"Estoy cansado de tanto estrés", models.Negative},
	{"Mi equipo de trabajo es excelente", models.Positive},
	{"No me gusta cómo nos tratan", models.Negative},
	{"Hoy fue un día normal", models.Neutral},
	{"Estoy muy motivado por el nuevo proyecto", models.Positive},
	{"La carga laboral es demasiado alta", models.Negative},
	{"Estoy satisfecho con mi jefe", models.Positive},
	{"No aguanto más este ambiente laboral", models.Negative},
	{"Todo va bien en la empresa", models.Positive},
	{"Estoy aburrido", models.Neutral},
	{"Nada especial hoy", models.Neutral},
	{"Me siento inspirado y con ganas de aprender", models.Positive},
	{"Siento que no puedo con tanta responsabilidad", models.Negative},
	{"El apoyo de mis compañeros es increíble", models.Positive},
	{"No me siento valorado en mi trabajo", models.Negative},
	{"Hoy no tengo ánimos para nada", models.Negative},
	{"Estoy contento con los logros alcanzados", models.Positive},
	{"Me frustra tener tantas tareas pendientes", models.Negative},
	{"Disfruto colaborar en equipo", models.Positive},
	{"La presión es demasiada y me agobia", models.Negative},
	{"Siento que mi esfuerzo es reconocido", models.Positive},
	{"Estoy desmotivado con los cambios recientes", models.Negative},
	{"Hoy fue un día tranquilo y sin problemas", models.Neutral},
	{"Me siento optimista sobre el futuro del proyecto", models.Positive},
	{"No me gusta cómo me comunicaron la noticia", models.Negative},
	{"Estoy ansioso por cumplir los objetivos", models.Negative},
	{"Disfruto aprender cosas nuevas cada día", models.Positive},
	{"Me siento frustrado con las metas no cumplidas", models.Negative},
	{"Estoy satisfecho con el ambiente laboral", models.Positive},
}

// SeedCorpus returns a copy of the built-in training corpus.
func SeedCorpus() []Example {
	out := make([]Example, len(seedCorpus))
	copy(out, seedCorpus)
	return out
}
