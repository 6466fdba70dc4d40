package intake

// Task descriptions. Each one asks the role to answer with the phrasing the
// PatternExtractor expects.

const triagePrompt = `Analiza los síntomas del paciente y determina:
- Nivel de urgencia (ALTA, MEDIA, BAJA)
- Especialidad médica recomendada
- Justificación médica

Responde al usuario de forma conversacional usando exactamente esta forma:
"Según los síntomas que describes, tu nivel de urgencia es {URGENCIA} y te recomiendo acudir a la especialidad de {ESPECIALIDAD}. {justificación breve}"

DATOS DEL PACIENTE:
- Nombre: %s
- Edad: %d años
- Síntomas: %s`

const doctorLookupPrompt = `Con base en el análisis de triaje anterior, usa consultar_doctores para obtener el doctor disponible en la especialidad recomendada.
Responde al usuario usando exactamente esta forma:
"El doctor disponible es el Dr. {nombre}. ¿Te gustaría agendar una cita con él?"
(o "la Dra. {nombre}" y "con ella" si corresponde)

Paciente: %s, %d años. Síntomas: %s`

const suggestPrompt = `Usando las herramientas de base de datos, consulta la disponibilidad del doctor %s (ID: %d) para la fecha y hora más próxima posible según la urgencia (%s).
Usa consultar_disponibilidad sin fecha ni hora.
Sugiere al usuario la fecha/hora disponible y pregunta si desea agendar la cita.
Ejemplo de respuesta:
"La cita más próxima disponible con %s es el {YYYY-MM-DD} a las {HH:MM}. ¿Te gustaría agendarla?"`

const confirmPrompt = `Registra la cita médica del paciente con el doctor %s (ID: %d) para el %s a las %s.
1. Usa registrar_paciente con id_paciente %q, nombre %q, edad %d, síntomas %q y urgencia %q. Si el paciente ya existe continúa.
2. Usa crear_cita con paciente_id %q, doctor_id %d, fecha %s, hora %s y como motivo los síntomas.
Confirma al usuario que la cita ha sido agendada exitosamente y muestra los detalles devueltos por crear_cita, incluida la línea "ID Cita".`

const negotiatePrompt = `Verifica si el doctor %s (ID: %d) está disponible el %s a las %s usando consultar_disponibilidad con esa fecha y hora (urgencia %s).
Si está disponible, responde "Sí, %s está disponible el {YYYY-MM-DD} a las {HH:MM}. ¿Deseas confirmar la cita?".
Si no está disponible, sugiere la siguiente fecha/hora disponible con la forma "es el {YYYY-MM-DD} a las {HH:MM}" y pregunta si desea agendarla.`

const (
	triageExpected       = "Recomendación médica conversacional con nivel de urgencia y especialidad."
	doctorLookupExpected = "Doctor disponible en la especialidad recomendada y pregunta de agendar cita."
	suggestExpected      = "Sugerencia de fecha/hora disponible y pregunta de confirmación de cita."
	confirmExpected      = "Confirmación de cita agendada con detalles."
	negotiateExpected    = "Respuesta sobre disponibilidad y sugerencia alternativa si es necesario."
)
